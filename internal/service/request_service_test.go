package service

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/municipal-requests/internal/domain"
	apperrors "github.com/spec-kit/municipal-requests/pkg/util"
)

var testTime = time.Date(2026, time.April, 2, 9, 30, 0, 0, time.UTC)

type testEnv struct {
	service  *RequestService
	requests *fakeRequestRepo
	updates  *fakeUpdateRepo
	audit    *fakeAuditRepo
	admin    *domain.User
	staff    *domain.User
}

func districtID(id string) *string {
	return &id
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	district := &domain.District{ID: "d1", MunicipalityID: "m1", Name: "North", CreatedAt: testTime}
	otherDistrict := &domain.District{ID: "d2", MunicipalityID: "m1", Name: "South", CreatedAt: testTime}

	admin := &domain.User{
		ID: "admin-1", Email: "admin@example.com", Role: domain.RoleDistrictAdmin,
		MunicipalityID: "m1", DistrictID: districtID("d1"), Name: "Ada Admin",
	}
	staff := &domain.User{
		ID: "staff-1", Email: "staff@example.com", Role: domain.RoleStaff,
		MunicipalityID: "m1", DistrictID: districtID("d1"), Name: "Sam Staff",
	}
	otherStaff := &domain.User{
		ID: "staff-2", Email: "staff2@example.com", Role: domain.RoleStaff,
		MunicipalityID: "m1", DistrictID: districtID("d2"), Name: "Olga Other",
	}

	requests := newFakeRequestRepo()
	updates := newFakeUpdateRepo()
	audit := newFakeAuditRepo()

	svc := NewRequestService(RequestDependencies{
		RequestRepo:  requests,
		UpdateRepo:   updates,
		DistrictRepo: newFakeDistrictRepo(district, otherDistrict),
		UserRepo:     newFakeUserRepo(admin, staff, otherStaff),
		AuditRepo:    audit,
		Now:          fixedClock(testTime),
	})

	return &testEnv{
		service:  svc,
		requests: requests,
		updates:  updates,
		audit:    audit,
		admin:    admin,
		staff:    staff,
	}
}

func (e *testEnv) mustCreate(t *testing.T, category domain.RequestCategory) *domain.ServiceRequest {
	t.Helper()
	req, err := e.service.Create(context.Background(), CreateInput{
		Category:    category,
		DistrictID:  "d1",
		Description: "broken pipe at the corner",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return req
}

func TestCreateAndTrack(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	created := env.mustCreate(t, domain.CategoryWater)

	if created.Status != domain.StatusSubmitted {
		t.Errorf("status = %s, want submitted", created.Status)
	}
	if created.Priority != domain.PriorityNormal {
		t.Errorf("priority = %s, want normal", created.Priority)
	}
	if len(created.TrackingCode) != 8 {
		t.Errorf("tracking code %q has length %d, want 8", created.TrackingCode, len(created.TrackingCode))
	}
	if created.SLADeadline == nil {
		t.Fatal("deadline not pinned at creation")
	}
	if want := testTime.Add(24 * time.Hour); !created.SLADeadline.Equal(want) {
		t.Errorf("deadline = %v, want %v", created.SLADeadline, want)
	}

	tracked, updates, err := env.service.TrackByCode(context.Background(), created.TrackingCode)
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if tracked.ID != created.ID {
		t.Errorf("tracked wrong request: %s", tracked.ID)
	}
	if len(updates) != 1 {
		t.Fatalf("got %d public updates, want 1", len(updates))
	}
	if updates[0].IsInternal {
		t.Error("initial update must be public")
	}
}

func TestTrackByCodeIsCaseInsensitive(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	created := env.mustCreate(t, domain.CategoryWaste)
	lower := " " + toLower(created.TrackingCode) + " "
	if _, _, err := env.service.TrackByCode(context.Background(), lower); err != nil {
		t.Errorf("lowercase code rejected: %v", err)
	}
}

func toLower(s string) string {
	out := []byte(s)
	for i, c := range out {
		if c >= 'A' && c <= 'Z' {
			out[i] = c + 'a' - 'A'
		}
	}
	return string(out)
}

func TestCreateValidation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.Create(ctx, CreateInput{Category: domain.CategoryWater, DistrictID: "d1", Description: "   "})
	if apperrors.CodeOf(err) != apperrors.CodeValidationFailed {
		t.Errorf("blank description: got %v", err)
	}

	_, err = env.service.Create(ctx, CreateInput{Category: "plumbing", DistrictID: "d1", Description: "x"})
	if apperrors.CodeOf(err) != apperrors.CodeValidationFailed {
		t.Errorf("unknown category: got %v", err)
	}

	_, err = env.service.Create(ctx, CreateInput{Category: domain.CategoryWater, DistrictID: "nope", Description: "x"})
	if apperrors.CodeOf(err) != apperrors.CodeNotFound {
		t.Errorf("missing district: got %v", err)
	}
}

func TestChangeStatusWalk(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	req := env.mustCreate(t, domain.CategoryWater)

	if _, err := env.service.ChangeStatus(ctx, req.ID, StatusChangeInput{NewStatus: domain.StatusReceived}, env.admin); err != nil {
		t.Fatalf("to received: %v", err)
	}
	if _, err := env.service.ChangeStatus(ctx, req.ID, StatusChangeInput{NewStatus: domain.StatusInProgress}, env.admin); err != nil {
		t.Fatalf("to in_progress: %v", err)
	}
	photo := "https://photos.example.com/after.jpg"
	completed, err := env.service.ChangeStatus(ctx, req.ID, StatusChangeInput{
		NewStatus:          domain.StatusCompleted,
		CompletionPhotoURL: &photo,
	}, env.admin)
	if err != nil {
		t.Fatalf("to completed: %v", err)
	}

	if completed.ClosedAt == nil || !completed.ClosedAt.Equal(testTime) {
		t.Errorf("closed_at = %v, want %v", completed.ClosedAt, testTime)
	}
	if completed.SLAStatus != domain.SLAMet {
		t.Errorf("sla status = %s, want met", completed.SLAStatus)
	}
	if completed.CompletionPhotoURL == nil || *completed.CompletionPhotoURL != photo {
		t.Error("completion photo not stored")
	}
}

func TestChangeStatusInvalidTransition(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	req := env.mustCreate(t, domain.CategoryWater)
	_, err := env.service.ChangeStatus(context.Background(), req.ID, StatusChangeInput{NewStatus: domain.StatusCompleted}, env.admin)
	if apperrors.CodeOf(err) != apperrors.CodeInvalidTransition {
		t.Errorf("got %v, want invalid transition", err)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	req := env.mustCreate(t, domain.CategoryOther)
	if _, err := env.service.ChangeStatus(ctx, req.ID, StatusChangeInput{NewStatus: domain.StatusReceived}, env.admin); err != nil {
		t.Fatal(err)
	}
	if _, err := env.service.ChangeStatus(ctx, req.ID, StatusChangeInput{NewStatus: domain.StatusInProgress}, env.admin); err != nil {
		t.Fatal(err)
	}

	_, err := env.service.ChangeStatus(ctx, req.ID, StatusChangeInput{NewStatus: domain.StatusRejected}, env.admin)
	if apperrors.CodeOf(err) != apperrors.CodeValidationFailed {
		t.Fatalf("reject without reason: got %v", err)
	}

	// Failed validation must leave the request untouched.
	current, err := env.requests.GetByID(ctx, req.ID)
	if err != nil {
		t.Fatal(err)
	}
	if current.Status != domain.StatusInProgress || current.ClosedAt != nil {
		t.Errorf("request mutated by failed rejection: %+v", current)
	}

	reason := "duplicate of an existing report"
	rejected, err := env.service.ChangeStatus(ctx, req.ID, StatusChangeInput{
		NewStatus:       domain.StatusRejected,
		RejectionReason: &reason,
	}, env.admin)
	if err != nil {
		t.Fatalf("reject with reason: %v", err)
	}
	if rejected.RejectionReason == nil || *rejected.RejectionReason != reason {
		t.Error("rejection reason not stored")
	}
	if rejected.ClosedAt == nil {
		t.Error("rejection must close the request")
	}
}

func TestCompleteRequiresPhoto(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	req := env.mustCreate(t, domain.CategoryRoads)
	if _, err := env.service.ChangeStatus(ctx, req.ID, StatusChangeInput{NewStatus: domain.StatusReceived}, env.admin); err != nil {
		t.Fatal(err)
	}
	if _, err := env.service.ChangeStatus(ctx, req.ID, StatusChangeInput{NewStatus: domain.StatusInProgress}, env.admin); err != nil {
		t.Fatal(err)
	}

	_, err := env.service.ChangeStatus(ctx, req.ID, StatusChangeInput{NewStatus: domain.StatusCompleted}, env.admin)
	if apperrors.CodeOf(err) != apperrors.CodeValidationFailed {
		t.Errorf("complete without photo: got %v", err)
	}
}

func TestAssignStaff(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	req := env.mustCreate(t, domain.CategoryWater)

	assigned, err := env.service.AssignStaff(ctx, req.ID, env.staff.ID, env.admin)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if assigned.AssignedToUserID == nil || *assigned.AssignedToUserID != env.staff.ID {
		t.Error("assignee id not stored")
	}
	if assigned.AssignedToName == nil || *assigned.AssignedToName != env.staff.Name {
		t.Error("assignee name not stored")
	}
}

func TestAssignStaffRejectsWrongRole(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	req := env.mustCreate(t, domain.CategoryWater)
	// admin-1 is a district admin, not field staff
	_, err := env.service.AssignStaff(context.Background(), req.ID, env.admin.ID, env.admin)
	if apperrors.CodeOf(err) != apperrors.CodeAssignmentFailed {
		t.Errorf("got %v, want assignment failure", err)
	}
}

func TestAssignStaffRejectsWrongDistrict(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	req := env.mustCreate(t, domain.CategoryWater)
	_, err := env.service.AssignStaff(context.Background(), req.ID, "staff-2", env.admin)
	if apperrors.CodeOf(err) != apperrors.CodeAssignmentFailed {
		t.Errorf("got %v, want assignment failure", err)
	}
}

func TestChangePriority(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	req := env.mustCreate(t, domain.CategoryWater)

	// Simulate a prior auto-escalation, then override manually.
	escalatedAt := testTime.Add(-time.Hour)
	stored, _ := env.requests.GetByID(ctx, req.ID)
	stored.Priority = domain.PriorityHigh
	stored.IsAutoEscalated = true
	stored.PriorityEscalatedAt = &escalatedAt
	if err := env.requests.Update(ctx, stored); err != nil {
		t.Fatal(err)
	}

	changed, err := env.service.ChangePriority(ctx, req.ID, domain.PriorityNormal, env.admin)
	if err != nil {
		t.Fatalf("change priority: %v", err)
	}
	if changed.Priority != domain.PriorityNormal {
		t.Errorf("priority = %s, want normal", changed.Priority)
	}
	if changed.IsAutoEscalated || changed.PriorityEscalatedAt != nil {
		t.Error("manual override must clear escalation tracking")
	}
	// The deadline stays pinned from creation.
	if changed.SLADeadline == nil || !changed.SLADeadline.Equal(testTime.Add(24*time.Hour)) {
		t.Errorf("deadline moved: %v", changed.SLADeadline)
	}
}

func TestChangePriorityUnchanged(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	req := env.mustCreate(t, domain.CategoryWater)
	_, err := env.service.ChangePriority(context.Background(), req.ID, domain.PriorityNormal, env.admin)
	if apperrors.CodeOf(err) != apperrors.CodeValidationFailed {
		t.Errorf("got %v, want validation failure", err)
	}
}

func TestScopeEnforcement(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	req := env.mustCreate(t, domain.CategoryWater)

	outsider := &domain.User{
		ID: "admin-9", Role: domain.RoleDistrictAdmin,
		MunicipalityID: "m1", DistrictID: districtID("d2"), Name: "Out Sider",
	}
	_, _, err := env.service.GetForAdmin(context.Background(), req.ID, outsider)
	if apperrors.CodeOf(err) != apperrors.CodeForbidden {
		t.Errorf("got %v, want forbidden", err)
	}
}

func TestInternalNotesHiddenFromPublicView(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	req := env.mustCreate(t, domain.CategoryLighting)
	if _, err := env.service.AddInternalNote(ctx, req.ID, "crew scheduled for tomorrow", env.admin); err != nil {
		t.Fatalf("add note: %v", err)
	}

	_, public, err := env.service.TrackByCode(ctx, req.TrackingCode)
	if err != nil {
		t.Fatal(err)
	}
	for _, update := range public {
		if update.IsInternal {
			t.Error("internal note leaked to public view")
		}
	}
	if len(public) != 1 {
		t.Errorf("got %d public updates, want 1", len(public))
	}

	_, all, err := env.service.GetForAdmin(ctx, req.ID, env.admin)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("got %d admin updates, want 2", len(all))
	}
}

func TestAddCitizenMessage(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	req := env.mustCreate(t, domain.CategoryWaste)
	_, updates, err := env.service.AddCitizenMessage(ctx, req.TrackingCode, "the smell is getting worse")
	if err != nil {
		t.Fatalf("citizen message: %v", err)
	}
	if len(updates) != 2 {
		t.Errorf("got %d public updates, want 2", len(updates))
	}

	_, _, err = env.service.AddCitizenMessage(ctx, req.TrackingCode, "  ")
	if apperrors.CodeOf(err) != apperrors.CodeValidationFailed {
		t.Errorf("blank message: got %v", err)
	}
}

func TestListScopesToDistrict(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustCreate(t, domain.CategoryWater)
	env.mustCreate(t, domain.CategoryRoads)

	items, total, err := env.service.List(ctx, ListFilter{}, env.admin)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("got %d items (total %d), want 2", len(items), total)
	}

	filtered, total, err := env.service.List(ctx, ListFilter{
		Categories: []domain.RequestCategory{domain.CategoryWater},
	}, env.admin)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(filtered) != 1 || filtered[0].Category != domain.CategoryWater {
		t.Errorf("category filter failed: %d items, total %d", len(filtered), total)
	}
}

func TestComplianceReport(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	req := env.mustCreate(t, domain.CategoryWater)
	if _, err := env.service.ChangeStatus(ctx, req.ID, StatusChangeInput{NewStatus: domain.StatusReceived}, env.admin); err != nil {
		t.Fatal(err)
	}
	if _, err := env.service.ChangeStatus(ctx, req.ID, StatusChangeInput{NewStatus: domain.StatusInProgress}, env.admin); err != nil {
		t.Fatal(err)
	}
	photo := "https://photos.example.com/done.jpg"
	if _, err := env.service.ChangeStatus(ctx, req.ID, StatusChangeInput{
		NewStatus:          domain.StatusCompleted,
		CompletionPhotoURL: &photo,
	}, env.admin); err != nil {
		t.Fatal(err)
	}

	rate, byCategory, err := env.service.ComplianceReport(ctx, env.admin)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if rate != 100 {
		t.Errorf("rate = %d, want 100", rate)
	}
	water := byCategory[domain.CategoryWater]
	if water.Total != 1 || water.Met != 1 {
		t.Errorf("water compliance = %+v", water)
	}
}

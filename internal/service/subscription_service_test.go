package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cbtpro/cbtpro-backend/internal/model"
	"github.com/cbtpro/cbtpro-backend/internal/payment"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const testServerKey = "SB-Mid-server-test"

type subscriptionFixture struct {
	svc      *SubscriptionService
	subs     *memSubscriptions
	teachers *memTeachers
	gateway  *fakeGateway
	teacher  uuid.UUID
	now      time.Time
}

func newSubscriptionFixture(t *testing.T) *subscriptionFixture {
	t.Helper()
	teachers := newMemTeachers()
	users := newMemUsers(teachers)
	f := &subscriptionFixture{
		subs:     newMemSubscriptions(),
		teachers: teachers,
		gateway:  &fakeGateway{serverKey: testServerKey},
		now:      time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
	}

	u := &model.User{ID: uuid.New(), Email: "guru@sekolah.id", FirstName: "Siti", LastName: "Aminah", Role: model.RoleTeacher, Status: model.UserStatusActive}
	if err := users.CreateTeacher(context.Background(), u, &model.TeacherProfile{
		SubscriptionTier: model.TierFree, SubscriptionStatus: model.SubscriptionActive,
		QuotaQuestions: FreeQuotaQuestions, QuotaStudents: FreeQuotaStudents,
	}); err != nil {
		t.Fatal(err)
	}
	f.teacher = u.ID

	f.svc = NewSubscriptionService(f.subs, teachers, users, f.gateway, SubscriptionConfig{
		Prices: map[model.SubscriptionTier]int64{model.TierPro: 500000},
		Period: 30 * 24 * time.Hour,
	}, zerolog.Nop())
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *subscriptionFixture) teacherClaims() *Claims {
	return &Claims{UserID: f.teacher, Role: model.RoleTeacher}
}

func (f *subscriptionFixture) notification(orderID, status string) *model.PaymentNotification {
	n := &model.PaymentNotification{
		OrderID:           orderID,
		StatusCode:        "200",
		GrossAmount:       "500000.00",
		TransactionStatus: status,
	}
	n.SignatureKey = payment.Signature(n.OrderID, n.StatusCode, n.GrossAmount, testServerKey)
	return n
}

func TestSubscription_Create(t *testing.T) {
	f := newSubscriptionFixture(t)

	sub, err := f.svc.Create(context.Background(), f.teacherClaims(), &model.CreateSubscriptionRequest{
		TeacherID: f.teacher, PlanTier: model.TierPro,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.HasPrefix(sub.OrderID, "SUB-") || len(sub.OrderID) != 12 {
		t.Errorf("order id = %q", sub.OrderID)
	}
	if sub.OrderID != "SUB-"+sub.ID.String()[:8] {
		t.Errorf("order id %q not derived from id %s", sub.OrderID, sub.ID)
	}
	if sub.Status != model.SubscriptionPending || sub.SnapToken == "" || sub.GrossAmount != 500000 {
		t.Errorf("subscription = %+v", sub)
	}

	req := f.gateway.requests[0]
	if req.GrossAmount != 500000 || req.Email != "guru@sekolah.id" || req.FirstName != "Siti" {
		t.Errorf("snap request = %+v", req)
	}
	if _, err := f.subs.GetByOrderID(context.Background(), sub.OrderID); err != nil {
		t.Errorf("subscription not stored: %v", err)
	}
}

func TestSubscription_CreateRules(t *testing.T) {
	f := newSubscriptionFixture(t)
	someoneElse := uuid.New()
	f.teachers.addFree(someoneElse)

	tests := []struct {
		name  string
		actor *Claims
		req   model.CreateSubscriptionRequest
		want  error
	}{
		{"free tier", f.teacherClaims(), model.CreateSubscriptionRequest{TeacherID: f.teacher, PlanTier: model.TierFree}, ErrFreeTierPurchase},
		{"other teacher", f.teacherClaims(), model.CreateSubscriptionRequest{TeacherID: someoneElse, PlanTier: model.TierPro}, ErrForbidden},
		{"no actor", nil, model.CreateSubscriptionRequest{TeacherID: f.teacher, PlanTier: model.TierPro}, ErrForbidden},
		{"superadmin for unknown teacher", &Claims{UserID: uuid.New(), Role: model.RoleSuperadmin}, model.CreateSubscriptionRequest{TeacherID: uuid.New(), PlanTier: model.TierPro}, ErrNotFound},
		{"superadmin for teacher", &Claims{UserID: uuid.New(), Role: model.RoleSuperadmin}, model.CreateSubscriptionRequest{TeacherID: f.teacher, PlanTier: model.TierPro}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := f.svc.Create(context.Background(), tt.actor, &req)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSubscription_GatewayFailure(t *testing.T) {
	f := newSubscriptionFixture(t)
	f.gateway.err = errors.New("connection reset")

	_, err := f.svc.Create(context.Background(), f.teacherClaims(), &model.CreateSubscriptionRequest{
		TeacherID: f.teacher, PlanTier: model.TierPro,
	})
	if !errors.Is(err, ErrPaymentGateway) {
		t.Fatalf("err = %v, want ErrPaymentGateway", err)
	}
	if len(f.subs.subs) != 0 {
		t.Error("subscription stored despite gateway failure")
	}
	if len(f.gateway.requests) != 1 {
		t.Errorf("gateway called %d times, want 1 (no retry)", len(f.gateway.requests))
	}
}

func TestSubscription_WebhookSettlementIsIdempotent(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()
	sub, err := f.svc.Create(ctx, f.teacherClaims(), &model.CreateSubscriptionRequest{TeacherID: f.teacher, PlanTier: model.TierPro})
	if err != nil {
		t.Fatal(err)
	}

	n := f.notification(sub.OrderID, "settlement")
	for i := 0; i < 2; i++ {
		res, err := f.svc.HandleNotification(ctx, n)
		if err != nil {
			t.Fatalf("delivery %d: %v", i+1, err)
		}
		if res.Status != "success" {
			t.Errorf("delivery %d: status = %q", i+1, res.Status)
		}

		profile, _ := f.teachers.GetByUserID(ctx, f.teacher)
		if profile.SubscriptionTier != model.TierPro || profile.QuotaQuestions != UnlimitedQuota || profile.QuotaStudents != UnlimitedQuota {
			t.Errorf("delivery %d: profile = %+v", i+1, profile)
		}
		wantEnd := f.now.Add(30 * 24 * time.Hour)
		if profile.SubscriptionEndDate == nil || !profile.SubscriptionEndDate.Equal(wantEnd) {
			t.Errorf("delivery %d: end date = %v, want %v", i+1, profile.SubscriptionEndDate, wantEnd)
		}
	}

	stored, _ := f.subs.GetByOrderID(ctx, sub.OrderID)
	if stored.Status != model.SubscriptionActive {
		t.Errorf("subscription status = %s", stored.Status)
	}
	if len(f.subs.subs) != 1 {
		t.Errorf("subscriptions = %d, want 1", len(f.subs.subs))
	}
}

func TestSubscription_WebhookNonActiveLeavesTier(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()
	sub, _ := f.svc.Create(ctx, f.teacherClaims(), &model.CreateSubscriptionRequest{TeacherID: f.teacher, PlanTier: model.TierPro})

	if _, err := f.svc.HandleNotification(ctx, f.notification(sub.OrderID, "expire")); err != nil {
		t.Fatal(err)
	}
	stored, _ := f.subs.GetByOrderID(ctx, sub.OrderID)
	if stored.Status != model.SubscriptionExpired {
		t.Errorf("status = %s, want expired", stored.Status)
	}
	profile, _ := f.teachers.GetByUserID(ctx, f.teacher)
	if profile.SubscriptionTier != model.TierFree {
		t.Errorf("tier = %s, want free", profile.SubscriptionTier)
	}
}

func TestSubscription_WebhookRejectsBadSignature(t *testing.T) {
	f := newSubscriptionFixture(t)
	n := f.notification("SUB-deadbeef", "settlement")
	n.GrossAmount = "1.00"

	if _, err := f.svc.HandleNotification(context.Background(), n); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("err = %v, want ErrInvalidSignature", err)
	}
}

func TestSubscription_WebhookUnknownOrderAcknowledged(t *testing.T) {
	f := newSubscriptionFixture(t)

	res, err := f.svc.HandleNotification(context.Background(), f.notification("SUB-00000000", "settlement"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != "acknowledged" {
		t.Errorf("status = %q, want acknowledged", res.Status)
	}
}

func TestSubscription_StatusAccess(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Status(ctx, f.teacherClaims(), f.teacher); err != nil {
		t.Errorf("own status: %v", err)
	}
	if _, err := f.svc.Status(ctx, &Claims{UserID: uuid.New(), Role: model.RoleTeacher}, f.teacher); !errors.Is(err, ErrForbidden) {
		t.Errorf("other teacher: err = %v, want ErrForbidden", err)
	}
	if _, err := f.svc.Status(ctx, &Claims{UserID: uuid.New(), Role: model.RoleSuperadmin}, f.teacher); err != nil {
		t.Errorf("superadmin: %v", err)
	}
}

func TestSubscription_ExpireLapsed(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()
	if err := f.teachers.ActivatePro(ctx, f.teacher, f.now.Add(-time.Hour), UnlimitedQuota, UnlimitedQuota); err != nil {
		t.Fatal(err)
	}

	n, err := f.svc.ExpireLapsed(ctx)
	if err != nil || n != 1 {
		t.Fatalf("ExpireLapsed = %d, %v", n, err)
	}
	profile, _ := f.teachers.GetByUserID(ctx, f.teacher)
	if profile.SubscriptionTier != model.TierFree || profile.SubscriptionStatus != model.SubscriptionExpired || profile.QuotaQuestions != FreeQuotaQuestions {
		t.Errorf("profile = %+v", profile)
	}
}

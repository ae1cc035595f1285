package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/mmynk/billspace/internal/auth"
	"github.com/mmynk/billspace/internal/core"
	"github.com/mmynk/billspace/internal/middleware"
	"github.com/mmynk/billspace/internal/models"
	"github.com/mmynk/billspace/internal/storage/memstore"
)

type testEnv struct {
	url   string
	store *memstore.Store
}

// setupTestServer mounts every service on an httptest server backed by an
// in-memory store.
func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	store := memstore.New()
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	svc := core.NewService(store, auth.NewBcryptHasher(bcrypt.MinCost))

	mux := http.NewServeMux()
	Mount(mux, svc, jwtManager, nil,
		connect.WithInterceptors(middleware.RequireAuth(jwtManager, PublicProcedures...)),
	)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testEnv{url: server.URL, store: store}
}

// call invokes procedure with msg, authenticating with token when set.
func call[Req, Res any](t *testing.T, env *testEnv, procedure, token string, msg *Req) (*Res, error) {
	t.Helper()

	client := connect.NewClient[Req, Res](http.DefaultClient, env.url+procedure, connect.WithCodec(Codec))
	req := connect.NewRequest(msg)
	if token != "" {
		req.Header().Set("Authorization", "Bearer "+token)
	}
	resp, err := client.CallUnary(context.Background(), req)
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// signUp registers username and returns the session token and user.
func signUp(t *testing.T, env *testEnv, username string) (string, User) {
	t.Helper()

	resp, err := call[RegisterRequest, LoginResponse](t, env, RegisterProcedure, "", &RegisterRequest{
		Username:    username,
		Email:       username + "@example.com",
		DisplayName: username,
		Password:    "Passw0rd!",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return resp.Token, resp.User
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRegisterAndLogin(t *testing.T) {
	env := setupTestServer(t)
	token, user := signUp(t, env, "alice")

	if token == "" {
		t.Fatal("expected a token")
	}
	if user.ID == "" || user.Username != "alice" || user.Status != models.StatusActive {
		t.Errorf("unexpected user: %+v", user)
	}

	resp, err := call[LoginRequest, LoginResponse](t, env, LoginProcedure, "", &LoginRequest{
		Username: "alice",
		Password: "Passw0rd!",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.User.ID != user.ID {
		t.Errorf("login user: expected %s, got %s", user.ID, resp.User.ID)
	}

	_, err = call[LoginRequest, LoginResponse](t, env, LoginProcedure, "", &LoginRequest{
		Username: "alice",
		Password: "wrong",
	})
	if connect.CodeOf(err) != connect.CodeUnauthenticated {
		t.Errorf("wrong password: expected Unauthenticated, got %v", err)
	}

	me, err := call[emptypb.Empty, UserResponse](t, env, GetCurrentUserProcedure, resp.Token, &emptypb.Empty{})
	if err != nil {
		t.Fatalf("GetCurrentUser failed: %v", err)
	}
	if me.User.Email != "alice@example.com" {
		t.Errorf("email: expected alice@example.com, got %s", me.User.Email)
	}
}

func TestRegisterErrors(t *testing.T) {
	env := setupTestServer(t)
	signUp(t, env, "alice")

	_, err := call[RegisterRequest, LoginResponse](t, env, RegisterProcedure, "", &RegisterRequest{
		Username:    "alice",
		Email:       "other@example.com",
		DisplayName: "Alice",
		Password:    "Passw0rd!",
	})
	if connect.CodeOf(err) != connect.CodeAlreadyExists {
		t.Errorf("duplicate username: expected AlreadyExists, got %v", err)
	}

	_, err = call[RegisterRequest, LoginResponse](t, env, RegisterProcedure, "", &RegisterRequest{
		Username:    "B",
		Email:       "not-an-email",
		DisplayName: "b",
		Password:    "short",
	})
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Fatalf("invalid draft: expected InvalidArgument, got %v", err)
	}

	detail := ErrorDetail(err)
	violations, ok := detail["violations"].([]any)
	if !ok {
		t.Fatalf("expected violations detail, got %v", detail)
	}
	if len(violations) != 4 {
		t.Errorf("expected 4 violations, got %d: %v", len(violations), violations)
	}
}

func TestAuthRequired(t *testing.T) {
	env := setupTestServer(t)

	_, err := call[emptypb.Empty, ListSpacesResponse](t, env, ListSpacesProcedure, "", &emptypb.Empty{})
	if connect.CodeOf(err) != connect.CodeUnauthenticated {
		t.Errorf("expected Unauthenticated, got %v", err)
	}
}

func TestSpaceMembership(t *testing.T) {
	env := setupTestServer(t)
	ownerToken, _ := signUp(t, env, "owner")
	viewerToken, viewer := signUp(t, env, "viewer")

	space, err := call[CreateSpaceRequest, SpaceResponse](t, env, CreateSpaceProcedure, ownerToken, &CreateSpaceRequest{Name: "Flat"})
	if err != nil {
		t.Fatalf("CreateSpace failed: %v", err)
	}
	if len(space.Members) != 1 || space.Members[0].Role != models.RoleOwner {
		t.Fatalf("expected creator as sole owner, got %+v", space.Members)
	}
	spaceID := space.Space.ID

	_, err = call[SpaceRequest, SpaceResponse](t, env, GetSpaceProcedure, viewerToken, &SpaceRequest{SpaceID: spaceID})
	if connect.CodeOf(err) != connect.CodePermissionDenied {
		t.Errorf("non-member: expected PermissionDenied, got %v", err)
	}

	_, err = call[MemberRequest, MemberResponse](t, env, AddMemberProcedure, ownerToken, &MemberRequest{
		SpaceID: spaceID, UserID: viewer.ID, Role: models.RoleViewer,
	})
	if err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}

	list, err := call[emptypb.Empty, ListSpacesResponse](t, env, ListSpacesProcedure, viewerToken, &emptypb.Empty{})
	if err != nil {
		t.Fatalf("ListSpaces failed: %v", err)
	}
	if len(list.Spaces) != 1 || list.Spaces[0].ID != spaceID {
		t.Errorf("expected viewer to see the space, got %+v", list.Spaces)
	}

	_, err = call[CreateBillRequest, BillResponse](t, env, CreateBillProcedure, viewerToken, &CreateBillRequest{
		SpaceID: spaceID, Name: "Rent", Amount: dec("100"), Currency: models.CurrencyUSD,
	})
	if connect.CodeOf(err) != connect.CodePermissionDenied {
		t.Errorf("viewer create: expected PermissionDenied, got %v", err)
	}

	owner := space.Members[0].UserID
	_, err = call[MemberRequest, MemberResponse](t, env, ChangeMemberRoleProcedure, ownerToken, &MemberRequest{
		SpaceID: spaceID, UserID: owner, Role: models.RoleEditor,
	})
	if connect.CodeOf(err) != connect.CodeFailedPrecondition {
		t.Errorf("last owner demotion: expected FailedPrecondition, got %v", err)
	}

	_, err = call[MemberRequest, emptypb.Empty](t, env, RemoveMemberProcedure, viewerToken, &MemberRequest{
		SpaceID: spaceID, UserID: viewer.ID,
	})
	if err != nil {
		t.Fatalf("leaving a space failed: %v", err)
	}

	if _, err := call[SpaceRequest, emptypb.Empty](t, env, DeactivateSpaceProcedure, ownerToken, &SpaceRequest{SpaceID: spaceID}); err != nil {
		t.Fatalf("DeactivateSpace failed: %v", err)
	}
	_, err = call[SpaceRequest, SpaceResponse](t, env, GetSpaceProcedure, ownerToken, &SpaceRequest{SpaceID: spaceID})
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("retired space: expected NotFound, got %v", err)
	}
}

func TestCategoryLifecycle(t *testing.T) {
	env := setupTestServer(t)
	token, _ := signUp(t, env, "alice")
	space, err := call[CreateSpaceRequest, SpaceResponse](t, env, CreateSpaceProcedure, token, &CreateSpaceRequest{Name: "Flat"})
	if err != nil {
		t.Fatalf("CreateSpace failed: %v", err)
	}

	created, err := call[CreateCategoryRequest, CategoryResponse](t, env, CreateCategoryProcedure, token, &CreateCategoryRequest{
		SpaceID: space.Space.ID, Name: "Food",
	})
	if err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}
	if created.Category.Icon != models.DefaultCategoryIcon {
		t.Errorf("icon: expected default, got %q", created.Category.Icon)
	}

	name := "Groceries"
	updated, err := call[UpdateCategoryRequest, CategoryResponse](t, env, UpdateCategoryProcedure, token, &UpdateCategoryRequest{
		CategoryID:     created.Category.ID,
		CategoryUpdate: core.CategoryUpdate{Name: &name},
	})
	if err != nil {
		t.Fatalf("UpdateCategory failed: %v", err)
	}
	if updated.Category.Name != name {
		t.Errorf("name: expected %s, got %s", name, updated.Category.Name)
	}

	if _, err := call[CategoryRequest, emptypb.Empty](t, env, DeactivateCategoryProcedure, token, &CategoryRequest{CategoryID: created.Category.ID}); err != nil {
		t.Fatalf("DeactivateCategory failed: %v", err)
	}

	list, err := call[SpaceRequest, ListCategoriesResponse](t, env, ListCategoriesProcedure, token, &SpaceRequest{SpaceID: space.Space.ID})
	if err != nil {
		t.Fatalf("ListCategories failed: %v", err)
	}
	if len(list.Categories) != 0 {
		t.Errorf("expected no active categories, got %d", len(list.Categories))
	}

	_, err = call[CategoryRequest, CategoryResponse](t, env, GetCategoryProcedure, token, &CategoryRequest{CategoryID: created.Category.ID})
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("retired category: expected NotFound, got %v", err)
	}
}

func TestBillSplitsOverRPC(t *testing.T) {
	env := setupTestServer(t)
	u1Token, u1 := signUp(t, env, "user_one")
	u2Token, u2 := signUp(t, env, "user_two")

	space, err := call[CreateSpaceRequest, SpaceResponse](t, env, CreateSpaceProcedure, u1Token, &CreateSpaceRequest{Name: "Trip"})
	if err != nil {
		t.Fatalf("CreateSpace failed: %v", err)
	}
	spaceID := space.Space.ID

	if _, err := call[MemberRequest, MemberResponse](t, env, AddMemberProcedure, u1Token, &MemberRequest{
		SpaceID: spaceID, UserID: u2.ID, Role: models.RoleEditor,
	}); err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}

	created, err := call[CreateBillRequest, BillResponse](t, env, CreateBillProcedure, u2Token, &CreateBillRequest{
		SpaceID:  spaceID,
		Name:     "Dinner",
		Amount:   dec("100"),
		Currency: models.CurrencyUSD,
		Splits: []core.SplitDraft{
			{UserID: u1.ID, Amount: dec("60")},
			{UserID: u2.ID, Amount: dec("40")},
		},
	})
	if err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}
	bill := created.Bill
	if bill.SplitState != models.SplitShared || len(bill.Splits) != 2 {
		t.Fatalf("expected two splits, got %s %+v", bill.SplitState, bill.Splits)
	}
	if bill.PayerID != u2.ID {
		t.Errorf("payer: expected creator %s, got %s", u2.ID, bill.PayerID)
	}

	_, err = call[SetPayersRequest, BillResponse](t, env, SetPayersProcedure, u2Token, &SetPayersRequest{
		BillID: bill.ID,
		Splits: []core.SplitDraft{
			{UserID: u1.ID, Amount: dec("50")},
			{UserID: u2.ID, Amount: dec("40")},
		},
	})
	if connect.CodeOf(err) != connect.CodeFailedPrecondition {
		t.Fatalf("mismatch: expected FailedPrecondition, got %v", err)
	}
	if detail := ErrorDetail(err); detail["delta"] != "-10" {
		t.Errorf("delta: expected -10, got %v", detail["delta"])
	}

	balances, err := call[SpaceRequest, BalancesResponse](t, env, GetBalancesProcedure, u1Token, &SpaceRequest{SpaceID: spaceID})
	if err != nil {
		t.Fatalf("GetBalances failed: %v", err)
	}
	if len(balances.Balances) != 1 || len(balances.Balances[0].Debts) != 1 {
		t.Fatalf("expected one USD debt, got %+v", balances.Balances)
	}
	debt := balances.Balances[0].Debts[0]
	if debt.From != u1.ID || debt.To != u2.ID || !debt.Amount.Equal(dec("60")) {
		t.Errorf("unexpected debt: %+v", debt)
	}

	if _, err := call[BillRequest, emptypb.Empty](t, env, DeactivateBillProcedure, u1Token, &BillRequest{BillID: bill.ID}); err != nil {
		t.Fatalf("DeactivateBill failed: %v", err)
	}
	_, err = call[BillRequest, BillResponse](t, env, GetBillProcedure, u2Token, &BillRequest{BillID: bill.ID})
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("retired bill: expected NotFound, got %v", err)
	}

	row, err := env.store.GetBill(context.Background(), bill.ID)
	if err != nil {
		t.Fatalf("expected the row to persist: %v", err)
	}
	if row.Status != models.StatusInactive {
		t.Errorf("status: expected inactive, got %s", row.Status)
	}
}

func TestBillRecurrenceAndEvenSplit(t *testing.T) {
	env := setupTestServer(t)
	token, alice := signUp(t, env, "alice")
	_, bobby := signUp(t, env, "bobby")

	space, err := call[CreateSpaceRequest, SpaceResponse](t, env, CreateSpaceProcedure, token, &CreateSpaceRequest{
		Name: "Flat", Members: []string{bobby.ID},
	})
	if err != nil {
		t.Fatalf("CreateSpace failed: %v", err)
	}

	newBill := func(name string) Bill {
		resp, err := call[CreateBillRequest, BillResponse](t, env, CreateBillProcedure, token, &CreateBillRequest{
			SpaceID: space.Space.ID, Name: name, Amount: dec("10"), Currency: models.CurrencyUSD,
		})
		if err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}
		return resp.Bill
	}
	parent := newBill("March")
	child := newBill("April")

	attached, err := call[AttachChildRequest, BillResponse](t, env, AttachChildProcedure, token, &AttachChildRequest{
		ParentID: parent.ID, ChildID: child.ID,
	})
	if err != nil {
		t.Fatalf("AttachChild failed: %v", err)
	}
	if attached.Bill.ParentID != parent.ID {
		t.Errorf("parent: expected %s, got %s", parent.ID, attached.Bill.ParentID)
	}

	_, err = call[AttachChildRequest, BillResponse](t, env, AttachChildProcedure, token, &AttachChildRequest{
		ParentID: child.ID, ChildID: parent.ID,
	})
	if connect.CodeOf(err) != connect.CodeFailedPrecondition {
		t.Errorf("cycle: expected FailedPrecondition, got %v", err)
	}

	children, err := call[BillRequest, ListBillsResponse](t, env, ListChildrenProcedure, token, &BillRequest{BillID: parent.ID})
	if err != nil {
		t.Fatalf("ListChildren failed: %v", err)
	}
	if len(children.Bills) != 1 || children.Bills[0].ID != child.ID {
		t.Errorf("expected one child, got %+v", children.Bills)
	}

	orphaned, err := call[BillRequest, BillResponse](t, env, OrphanProcedure, token, &BillRequest{BillID: child.ID})
	if err != nil {
		t.Fatalf("Orphan failed: %v", err)
	}
	if orphaned.Bill.ParentID != "" {
		t.Errorf("expected no parent, got %s", orphaned.Bill.ParentID)
	}

	split, err := call[SplitEvenlyRequest, BillResponse](t, env, SplitEvenlyProcedure, token, &SplitEvenlyRequest{
		BillID: parent.ID, UserIDs: []string{alice.ID, bobby.ID},
	})
	if err != nil {
		t.Fatalf("SplitEvenly failed: %v", err)
	}
	if len(split.Bill.Splits) != 2 || !split.Bill.Splits[0].Amount.Equal(dec("5")) {
		t.Errorf("unexpected splits: %+v", split.Bill.Splits)
	}

	amount := dec("12")
	_, err = call[UpdateBillRequest, BillResponse](t, env, UpdateBillProcedure, token, &UpdateBillRequest{
		BillID: parent.ID, BillUpdate: core.BillUpdate{Amount: &amount},
	})
	if connect.CodeOf(err) != connect.CodeFailedPrecondition {
		t.Errorf("amount change on split bill: expected FailedPrecondition, got %v", err)
	}

	cleared, err := call[BillRequest, BillResponse](t, env, ClearPayersProcedure, token, &BillRequest{BillID: parent.ID})
	if err != nil {
		t.Fatalf("ClearPayers failed: %v", err)
	}
	if cleared.Bill.SplitState != models.SplitUnspecified {
		t.Errorf("split state: expected unspecified, got %s", cleared.Bill.SplitState)
	}

	updated, err := call[UpdateBillRequest, BillResponse](t, env, UpdateBillProcedure, token, &UpdateBillRequest{
		BillID: parent.ID, BillUpdate: core.BillUpdate{Amount: &amount},
	})
	if err != nil {
		t.Fatalf("UpdateBill failed: %v", err)
	}
	if !updated.Bill.Amount.Equal(amount) {
		t.Errorf("amount: expected 12, got %s", updated.Bill.Amount)
	}

	list, err := call[SpaceRequest, ListBillsResponse](t, env, ListBillsProcedure, token, &SpaceRequest{SpaceID: space.Space.ID})
	if err != nil {
		t.Fatalf("ListBills failed: %v", err)
	}
	if len(list.Bills) != 2 {
		t.Errorf("expected 2 bills, got %d", len(list.Bills))
	}
}

func TestUpdateProfileAndDeactivate(t *testing.T) {
	env := setupTestServer(t)
	token, _ := signUp(t, env, "alice")

	display := "Alice L"
	resp, err := call[UpdateProfileRequest, UserResponse](t, env, UpdateProfileProcedure, token, &UpdateProfileRequest{DisplayName: &display})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if resp.User.DisplayName != display {
		t.Errorf("display name: expected %s, got %s", display, resp.User.DisplayName)
	}

	if _, err := call[emptypb.Empty, emptypb.Empty](t, env, DeactivateUserProcedure, token, &emptypb.Empty{}); err != nil {
		t.Fatalf("DeactivateUser failed: %v", err)
	}

	_, err = call[LoginRequest, LoginResponse](t, env, LoginProcedure, "", &LoginRequest{Username: "alice", Password: "Passw0rd!"})
	if connect.CodeOf(err) != connect.CodeUnauthenticated {
		t.Errorf("retired login: expected Unauthenticated, got %v", err)
	}
}

func TestSettlementsOverRPC(t *testing.T) {
	env := setupTestServer(t)
	u1Token, u1 := signUp(t, env, "user_one")
	u2Token, u2 := signUp(t, env, "user_two")

	space, err := call[CreateSpaceRequest, SpaceResponse](t, env, CreateSpaceProcedure, u1Token, &CreateSpaceRequest{
		Name: "Flat", Members: []string{u2.ID},
	})
	if err != nil {
		t.Fatalf("CreateSpace failed: %v", err)
	}
	spaceID := space.Space.ID

	if _, err := call[CreateBillRequest, BillResponse](t, env, CreateBillProcedure, u1Token, &CreateBillRequest{
		SpaceID:  spaceID,
		Name:     "Rent",
		Amount:   dec("1000"),
		Currency: models.CurrencyEUR,
		Splits: []core.SplitDraft{
			{UserID: u1.ID, Amount: dec("500")},
			{UserID: u2.ID, Amount: dec("500")},
		},
	}); err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}

	_, err = call[RecordSettlementRequest, SettlementResponse](t, env, RecordSettlementProcedure, u2Token, &RecordSettlementRequest{
		SpaceID: spaceID, FromUserID: u2.ID, ToUserID: u2.ID, Amount: dec("10"), Currency: models.CurrencyEUR,
	})
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Fatalf("self settlement: expected InvalidArgument, got %v", err)
	}

	recorded, err := call[RecordSettlementRequest, SettlementResponse](t, env, RecordSettlementProcedure, u2Token, &RecordSettlementRequest{
		SpaceID:    spaceID,
		FromUserID: u2.ID,
		ToUserID:   u1.ID,
		Amount:     dec("200"),
		Currency:   models.CurrencyEUR,
		Note:       "bank transfer",
	})
	if err != nil {
		t.Fatalf("RecordSettlement failed: %v", err)
	}
	if recorded.Settlement.CreatedBy != u2.ID || recorded.Settlement.Note != "bank transfer" {
		t.Errorf("unexpected settlement: %+v", recorded.Settlement)
	}

	balances, err := call[SpaceRequest, BalancesResponse](t, env, GetBalancesProcedure, u1Token, &SpaceRequest{SpaceID: spaceID})
	if err != nil {
		t.Fatalf("GetBalances failed: %v", err)
	}
	debt := balances.Balances[0].Debts[0]
	if debt.From != u2.ID || !debt.Amount.Equal(dec("300")) {
		t.Errorf("unexpected debt after settlement: %+v", debt)
	}

	list, err := call[SpaceRequest, ListSettlementsResponse](t, env, ListSettlementsProcedure, u1Token, &SpaceRequest{SpaceID: spaceID})
	if err != nil {
		t.Fatalf("ListSettlements failed: %v", err)
	}
	if len(list.Settlements) != 1 || list.Settlements[0].ID != recorded.Settlement.ID {
		t.Fatalf("unexpected settlements: %+v", list.Settlements)
	}

	if _, err := call[SettlementRequest, emptypb.Empty](t, env, DeactivateSettlementProcedure, u1Token, &SettlementRequest{
		SettlementID: recorded.Settlement.ID,
	}); err != nil {
		t.Fatalf("DeactivateSettlement failed: %v", err)
	}

	list, err = call[SpaceRequest, ListSettlementsResponse](t, env, ListSettlementsProcedure, u2Token, &SpaceRequest{SpaceID: spaceID})
	if err != nil {
		t.Fatalf("ListSettlements failed: %v", err)
	}
	if len(list.Settlements) != 0 {
		t.Errorf("expected no active settlements, got %+v", list.Settlements)
	}
}

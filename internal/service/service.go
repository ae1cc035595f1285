// Package service exposes the core operations as Connect RPC procedures
// with JSON bodies.
package service

import (
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/billspace/internal/auth"
	"github.com/mmynk/billspace/internal/core"
	"github.com/mmynk/billspace/internal/middleware"
)

const (
	UserServiceName       = "billspace.v1.UserService"
	SpaceServiceName      = "billspace.v1.SpaceService"
	CategoryServiceName   = "billspace.v1.CategoryService"
	BillServiceName       = "billspace.v1.BillService"
	SettlementServiceName = "billspace.v1.SettlementService"
)

const (
	RegisterProcedure       = "/" + UserServiceName + "/Register"
	LoginProcedure          = "/" + UserServiceName + "/Login"
	GetCurrentUserProcedure = "/" + UserServiceName + "/GetCurrentUser"
	UpdateProfileProcedure  = "/" + UserServiceName + "/UpdateProfile"
	DeactivateUserProcedure = "/" + UserServiceName + "/DeactivateUser"

	CreateSpaceProcedure      = "/" + SpaceServiceName + "/CreateSpace"
	GetSpaceProcedure         = "/" + SpaceServiceName + "/GetSpace"
	ListSpacesProcedure       = "/" + SpaceServiceName + "/ListSpaces"
	AddMemberProcedure        = "/" + SpaceServiceName + "/AddMember"
	ChangeMemberRoleProcedure = "/" + SpaceServiceName + "/ChangeMemberRole"
	RemoveMemberProcedure     = "/" + SpaceServiceName + "/RemoveMember"
	DeactivateSpaceProcedure  = "/" + SpaceServiceName + "/DeactivateSpace"
	GetBalancesProcedure      = "/" + SpaceServiceName + "/GetBalances"

	CreateCategoryProcedure     = "/" + CategoryServiceName + "/CreateCategory"
	GetCategoryProcedure        = "/" + CategoryServiceName + "/GetCategory"
	ListCategoriesProcedure     = "/" + CategoryServiceName + "/ListCategories"
	UpdateCategoryProcedure     = "/" + CategoryServiceName + "/UpdateCategory"
	DeactivateCategoryProcedure = "/" + CategoryServiceName + "/DeactivateCategory"

	CreateBillProcedure     = "/" + BillServiceName + "/CreateBill"
	GetBillProcedure        = "/" + BillServiceName + "/GetBill"
	ListBillsProcedure      = "/" + BillServiceName + "/ListBills"
	ListChildrenProcedure   = "/" + BillServiceName + "/ListChildren"
	UpdateBillProcedure     = "/" + BillServiceName + "/UpdateBill"
	DeactivateBillProcedure = "/" + BillServiceName + "/DeactivateBill"
	AttachChildProcedure    = "/" + BillServiceName + "/AttachChild"
	OrphanProcedure         = "/" + BillServiceName + "/Orphan"
	SetPayersProcedure      = "/" + BillServiceName + "/SetPayers"
	SplitEvenlyProcedure    = "/" + BillServiceName + "/SplitEvenly"
	ClearPayersProcedure    = "/" + BillServiceName + "/ClearPayers"

	RecordSettlementProcedure     = "/" + SettlementServiceName + "/RecordSettlement"
	ListSettlementsProcedure      = "/" + SettlementServiceName + "/ListSettlements"
	DeactivateSettlementProcedure = "/" + SettlementServiceName + "/DeactivateSettlement"
)

// PublicProcedures can be called without a session token.
var PublicProcedures = []string{RegisterProcedure, LoginProcedure}

// CredentialProcedures accept a password and are rate limited per peer.
var CredentialProcedures = []string{RegisterProcedure, LoginProcedure}

// Mount registers every service on mux. opts are applied to every
// handler after the JSON codec, typically the interceptor chain.
func Mount(mux *http.ServeMux, svc *core.Service, jwtManager *auth.JWTManager, logger *slog.Logger, opts ...connect.HandlerOption) {
	if logger == nil {
		logger = slog.Default()
	}
	mux.Handle(NewUserService(svc, jwtManager, logger).Handler(opts...))
	mux.Handle(NewSpaceService(svc, logger).Handler(opts...))
	mux.Handle(NewCategoryService(svc, logger).Handler(opts...))
	mux.Handle(NewBillService(svc, logger).Handler(opts...))
	mux.Handle(NewSettlementService(svc, logger).Handler(opts...))
}

// unary builds a Connect handler for one procedure using Codec.
func unary[Req, Res any](
	procedure string,
	fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error),
	opts []connect.HandlerOption,
) http.Handler {
	all := append([]connect.HandlerOption{connect.WithCodec(Codec)}, opts...)
	return connect.NewUnaryHandler(procedure, fn, all...)
}

// actor returns the authenticated user set by the auth interceptor.
func actor(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return userID, nil
}

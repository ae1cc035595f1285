package service

import (
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/mmynk/billspace/internal/core"
)

// SpaceService implements spaces, memberships and balances.
type SpaceService struct {
	core   *core.Service
	logger *slog.Logger
}

// NewSpaceService creates a SpaceService.
func NewSpaceService(svc *core.Service, logger *slog.Logger) *SpaceService {
	return &SpaceService{core: svc, logger: logger}
}

// Handler returns the path prefix and handler serving every SpaceService procedure.
func (s *SpaceService) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(CreateSpaceProcedure, unary(CreateSpaceProcedure, s.CreateSpace, opts))
	mux.Handle(GetSpaceProcedure, unary(GetSpaceProcedure, s.GetSpace, opts))
	mux.Handle(ListSpacesProcedure, unary(ListSpacesProcedure, s.ListSpaces, opts))
	mux.Handle(AddMemberProcedure, unary(AddMemberProcedure, s.AddMember, opts))
	mux.Handle(ChangeMemberRoleProcedure, unary(ChangeMemberRoleProcedure, s.ChangeMemberRole, opts))
	mux.Handle(RemoveMemberProcedure, unary(RemoveMemberProcedure, s.RemoveMember, opts))
	mux.Handle(DeactivateSpaceProcedure, unary(DeactivateSpaceProcedure, s.DeactivateSpace, opts))
	mux.Handle(GetBalancesProcedure, unary(GetBalancesProcedure, s.GetBalances, opts))
	return "/" + SpaceServiceName + "/", mux
}

// CreateSpace creates a space owned by the caller.
func (s *SpaceService) CreateSpace(ctx context.Context, req *connect.Request[CreateSpaceRequest]) (*connect.Response[SpaceResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("CreateSpace request received",
		"name", req.Msg.Name,
		"members_count", len(req.Msg.Members),
	)

	detail, err := s.core.CreateSpace(ctx, userID, *req.Msg)
	if err != nil {
		s.logger.Warn("CreateSpace failed", "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("Space created", "space_id", detail.Space.ID)
	return connect.NewResponse(toSpaceResponse(detail)), nil
}

// GetSpace returns a space and its members.
func (s *SpaceService) GetSpace(ctx context.Context, req *connect.Request[SpaceRequest]) (*connect.Response[SpaceResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("GetSpace request received", "space_id", req.Msg.SpaceID)

	detail, err := s.core.GetSpace(ctx, userID, req.Msg.SpaceID)
	if err != nil {
		s.logger.Warn("GetSpace failed", "space_id", req.Msg.SpaceID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(toSpaceResponse(detail)), nil
}

// ListSpaces returns the active spaces the caller belongs to.
func (s *SpaceService) ListSpaces(ctx context.Context, _ *connect.Request[emptypb.Empty]) (*connect.Response[ListSpacesResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("ListSpaces request received", "user_id", userID)

	spaces, err := s.core.ListSpaces(ctx, userID)
	if err != nil {
		s.logger.Warn("ListSpaces failed", "error", err)
		return nil, toConnectError(err)
	}

	out := make([]Space, len(spaces))
	for i, sp := range spaces {
		out[i] = toSpace(sp)
	}

	s.logger.Info("ListSpaces successful", "count", len(out))
	return connect.NewResponse(&ListSpacesResponse{Spaces: out}), nil
}

// AddMember adds a user to a space with a role.
func (s *SpaceService) AddMember(ctx context.Context, req *connect.Request[MemberRequest]) (*connect.Response[MemberResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("AddMember request received",
		"space_id", req.Msg.SpaceID,
		"user_id", req.Msg.UserID,
		"role", req.Msg.Role,
	)

	m, err := s.core.AddMember(ctx, userID, req.Msg.SpaceID, req.Msg.UserID, req.Msg.Role)
	if err != nil {
		s.logger.Warn("AddMember failed", "space_id", req.Msg.SpaceID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&MemberResponse{Member: toMember(m)}), nil
}

// ChangeMemberRole changes a member's role.
func (s *SpaceService) ChangeMemberRole(ctx context.Context, req *connect.Request[MemberRequest]) (*connect.Response[MemberResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("ChangeMemberRole request received",
		"space_id", req.Msg.SpaceID,
		"user_id", req.Msg.UserID,
		"role", req.Msg.Role,
	)

	m, err := s.core.ChangeMemberRole(ctx, userID, req.Msg.SpaceID, req.Msg.UserID, req.Msg.Role)
	if err != nil {
		s.logger.Warn("ChangeMemberRole failed", "space_id", req.Msg.SpaceID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&MemberResponse{Member: toMember(m)}), nil
}

// RemoveMember removes a member from a space. Members may always leave.
func (s *SpaceService) RemoveMember(ctx context.Context, req *connect.Request[MemberRequest]) (*connect.Response[emptypb.Empty], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("RemoveMember request received", "space_id", req.Msg.SpaceID, "user_id", req.Msg.UserID)

	if err := s.core.RemoveMember(ctx, userID, req.Msg.SpaceID, req.Msg.UserID); err != nil {
		s.logger.Warn("RemoveMember failed", "space_id", req.Msg.SpaceID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&emptypb.Empty{}), nil
}

// DeactivateSpace retires a space. Owners only.
func (s *SpaceService) DeactivateSpace(ctx context.Context, req *connect.Request[SpaceRequest]) (*connect.Response[emptypb.Empty], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("DeactivateSpace request received", "space_id", req.Msg.SpaceID)

	if err := s.core.DeactivateSpace(ctx, userID, req.Msg.SpaceID); err != nil {
		s.logger.Warn("DeactivateSpace failed", "space_id", req.Msg.SpaceID, "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("Space deactivated", "space_id", req.Msg.SpaceID)
	return connect.NewResponse(&emptypb.Empty{}), nil
}

// GetBalances returns per-currency member balances and simplified debts.
func (s *SpaceService) GetBalances(ctx context.Context, req *connect.Request[SpaceRequest]) (*connect.Response[BalancesResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("GetBalances request received", "space_id", req.Msg.SpaceID)

	balances, err := s.core.SpaceBalances(ctx, userID, req.Msg.SpaceID)
	if err != nil {
		s.logger.Warn("GetBalances failed", "space_id", req.Msg.SpaceID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&BalancesResponse{Balances: toBalances(balances)}), nil
}

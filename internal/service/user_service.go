package service

import (
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/mmynk/billspace/internal/auth"
	"github.com/mmynk/billspace/internal/core"
)

// UserService implements registration, login and account management.
type UserService struct {
	core       *core.Service
	jwtManager *auth.JWTManager
	logger     *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(svc *core.Service, jwtManager *auth.JWTManager, logger *slog.Logger) *UserService {
	return &UserService{core: svc, jwtManager: jwtManager, logger: logger}
}

// Handler returns the path prefix and handler serving every UserService procedure.
func (s *UserService) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(RegisterProcedure, unary(RegisterProcedure, s.Register, opts))
	mux.Handle(LoginProcedure, unary(LoginProcedure, s.Login, opts))
	mux.Handle(GetCurrentUserProcedure, unary(GetCurrentUserProcedure, s.GetCurrentUser, opts))
	mux.Handle(UpdateProfileProcedure, unary(UpdateProfileProcedure, s.UpdateProfile, opts))
	mux.Handle(DeactivateUserProcedure, unary(DeactivateUserProcedure, s.DeactivateUser, opts))
	return "/" + UserServiceName + "/", mux
}

// Register creates a new user account and returns a session token.
func (s *UserService) Register(ctx context.Context, req *connect.Request[RegisterRequest]) (*connect.Response[LoginResponse], error) {
	s.logger.Info("Register request received", "username", req.Msg.Username)

	user, err := s.core.Register(ctx, *req.Msg)
	if err != nil {
		s.logger.Warn("Registration failed", "username", req.Msg.Username, "error", err)
		return nil, toConnectError(err)
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("User registered successfully", "user_id", user.ID)
	return connect.NewResponse(&LoginResponse{Token: token, User: toUser(user)}), nil
}

// Login authenticates a user and returns a session token.
func (s *UserService) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error) {
	s.logger.Info("Login request received", "username", req.Msg.Username)

	user, err := s.core.Login(ctx, req.Msg.Username, req.Msg.Password)
	if err != nil {
		s.logger.Warn("Login failed", "username", req.Msg.Username, "error", err)
		return nil, toConnectError(err)
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("User logged in successfully", "user_id", user.ID)
	return connect.NewResponse(&LoginResponse{Token: token, User: toUser(user)}), nil
}

// GetCurrentUser returns the authenticated user's account.
func (s *UserService) GetCurrentUser(ctx context.Context, _ *connect.Request[emptypb.Empty]) (*connect.Response[UserResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("GetCurrentUser request received", "user_id", userID)

	user, err := s.core.GetCurrentUser(ctx, userID)
	if err != nil {
		s.logger.Warn("GetCurrentUser failed", "user_id", userID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&UserResponse{User: toUser(user)}), nil
}

// UpdateProfile changes the authenticated user's email, display name or password.
func (s *UserService) UpdateProfile(ctx context.Context, req *connect.Request[UpdateProfileRequest]) (*connect.Response[UserResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("UpdateProfile request received", "user_id", userID)

	user, err := s.core.UpdateProfile(ctx, userID, *req.Msg)
	if err != nil {
		s.logger.Warn("UpdateProfile failed", "user_id", userID, "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("Profile updated", "user_id", userID)
	return connect.NewResponse(&UserResponse{User: toUser(user)}), nil
}

// DeactivateUser retires the authenticated user's account.
func (s *UserService) DeactivateUser(ctx context.Context, _ *connect.Request[emptypb.Empty]) (*connect.Response[emptypb.Empty], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("DeactivateUser request received", "user_id", userID)

	if err := s.core.DeactivateUser(ctx, userID); err != nil {
		s.logger.Warn("DeactivateUser failed", "user_id", userID, "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("User deactivated", "user_id", userID)
	return connect.NewResponse(&emptypb.Empty{}), nil
}

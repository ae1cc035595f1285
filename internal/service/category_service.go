package service

import (
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/mmynk/billspace/internal/core"
)

// CategoryService implements space-scoped bill categories.
type CategoryService struct {
	core   *core.Service
	logger *slog.Logger
}

// NewCategoryService creates a CategoryService.
func NewCategoryService(svc *core.Service, logger *slog.Logger) *CategoryService {
	return &CategoryService{core: svc, logger: logger}
}

// Handler returns the path prefix and handler serving every CategoryService procedure.
func (s *CategoryService) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(CreateCategoryProcedure, unary(CreateCategoryProcedure, s.CreateCategory, opts))
	mux.Handle(GetCategoryProcedure, unary(GetCategoryProcedure, s.GetCategory, opts))
	mux.Handle(ListCategoriesProcedure, unary(ListCategoriesProcedure, s.ListCategories, opts))
	mux.Handle(UpdateCategoryProcedure, unary(UpdateCategoryProcedure, s.UpdateCategory, opts))
	mux.Handle(DeactivateCategoryProcedure, unary(DeactivateCategoryProcedure, s.DeactivateCategory, opts))
	return "/" + CategoryServiceName + "/", mux
}

func (s *CategoryService) CreateCategory(ctx context.Context, req *connect.Request[CreateCategoryRequest]) (*connect.Response[CategoryResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("CreateCategory request received", "space_id", req.Msg.SpaceID, "name", req.Msg.Name)

	c, err := s.core.CreateCategory(ctx, userID, *req.Msg)
	if err != nil {
		s.logger.Warn("CreateCategory failed", "space_id", req.Msg.SpaceID, "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("Category created", "category_id", c.ID)
	return connect.NewResponse(&CategoryResponse{Category: toCategory(c)}), nil
}

func (s *CategoryService) GetCategory(ctx context.Context, req *connect.Request[CategoryRequest]) (*connect.Response[CategoryResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("GetCategory request received", "category_id", req.Msg.CategoryID)

	c, err := s.core.GetCategory(ctx, userID, req.Msg.CategoryID)
	if err != nil {
		s.logger.Warn("GetCategory failed", "category_id", req.Msg.CategoryID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&CategoryResponse{Category: toCategory(c)}), nil
}

func (s *CategoryService) ListCategories(ctx context.Context, req *connect.Request[SpaceRequest]) (*connect.Response[ListCategoriesResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("ListCategories request received", "space_id", req.Msg.SpaceID)

	categories, err := s.core.ListCategories(ctx, userID, req.Msg.SpaceID)
	if err != nil {
		s.logger.Warn("ListCategories failed", "space_id", req.Msg.SpaceID, "error", err)
		return nil, toConnectError(err)
	}

	out := make([]Category, len(categories))
	for i, c := range categories {
		out[i] = toCategory(c)
	}
	return connect.NewResponse(&ListCategoriesResponse{Categories: out}), nil
}

func (s *CategoryService) UpdateCategory(ctx context.Context, req *connect.Request[UpdateCategoryRequest]) (*connect.Response[CategoryResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("UpdateCategory request received", "category_id", req.Msg.CategoryID)

	c, err := s.core.UpdateCategory(ctx, userID, req.Msg.CategoryID, req.Msg.CategoryUpdate)
	if err != nil {
		s.logger.Warn("UpdateCategory failed", "category_id", req.Msg.CategoryID, "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("Category updated", "category_id", c.ID)
	return connect.NewResponse(&CategoryResponse{Category: toCategory(c)}), nil
}

func (s *CategoryService) DeactivateCategory(ctx context.Context, req *connect.Request[CategoryRequest]) (*connect.Response[emptypb.Empty], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("DeactivateCategory request received", "category_id", req.Msg.CategoryID)

	if err := s.core.DeactivateCategory(ctx, userID, req.Msg.CategoryID); err != nil {
		s.logger.Warn("DeactivateCategory failed", "category_id", req.Msg.CategoryID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&emptypb.Empty{}), nil
}

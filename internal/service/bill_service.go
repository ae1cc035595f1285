package service

import (
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/mmynk/billspace/internal/core"
)

// BillService implements bills, recurrence chains and payer splits.
type BillService struct {
	core   *core.Service
	logger *slog.Logger
}

// NewBillService creates a BillService.
func NewBillService(svc *core.Service, logger *slog.Logger) *BillService {
	return &BillService{core: svc, logger: logger}
}

// Handler returns the path prefix and handler serving every BillService procedure.
func (s *BillService) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(CreateBillProcedure, unary(CreateBillProcedure, s.CreateBill, opts))
	mux.Handle(GetBillProcedure, unary(GetBillProcedure, s.GetBill, opts))
	mux.Handle(ListBillsProcedure, unary(ListBillsProcedure, s.ListBills, opts))
	mux.Handle(ListChildrenProcedure, unary(ListChildrenProcedure, s.ListChildren, opts))
	mux.Handle(UpdateBillProcedure, unary(UpdateBillProcedure, s.UpdateBill, opts))
	mux.Handle(DeactivateBillProcedure, unary(DeactivateBillProcedure, s.DeactivateBill, opts))
	mux.Handle(AttachChildProcedure, unary(AttachChildProcedure, s.AttachChild, opts))
	mux.Handle(OrphanProcedure, unary(OrphanProcedure, s.Orphan, opts))
	mux.Handle(SetPayersProcedure, unary(SetPayersProcedure, s.SetPayers, opts))
	mux.Handle(SplitEvenlyProcedure, unary(SplitEvenlyProcedure, s.SplitEvenly, opts))
	mux.Handle(ClearPayersProcedure, unary(ClearPayersProcedure, s.ClearPayers, opts))
	return "/" + BillServiceName + "/", mux
}

// CreateBill creates a bill, optionally with a parent and payer splits.
func (s *BillService) CreateBill(ctx context.Context, req *connect.Request[CreateBillRequest]) (*connect.Response[BillResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("CreateBill request received",
		"space_id", req.Msg.SpaceID,
		"name", req.Msg.Name,
		"amount", req.Msg.Amount,
		"currency", req.Msg.Currency,
		"splits_count", len(req.Msg.Splits),
	)

	b, err := s.core.CreateBill(ctx, userID, *req.Msg)
	if err != nil {
		s.logger.Warn("CreateBill failed", "space_id", req.Msg.SpaceID, "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("Bill created", "bill_id", b.ID)
	return connect.NewResponse(&BillResponse{Bill: toBill(b)}), nil
}

// GetBill retrieves a bill by ID.
func (s *BillService) GetBill(ctx context.Context, req *connect.Request[BillRequest]) (*connect.Response[BillResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("GetBill request received", "bill_id", req.Msg.BillID)

	b, err := s.core.GetBill(ctx, userID, req.Msg.BillID)
	if err != nil {
		s.logger.Warn("GetBill failed", "bill_id", req.Msg.BillID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&BillResponse{Bill: toBill(b)}), nil
}

// ListBills returns the active bills of a space.
func (s *BillService) ListBills(ctx context.Context, req *connect.Request[SpaceRequest]) (*connect.Response[ListBillsResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("ListBills request received", "space_id", req.Msg.SpaceID)

	bills, err := s.core.ListBills(ctx, userID, req.Msg.SpaceID)
	if err != nil {
		s.logger.Warn("ListBills failed", "space_id", req.Msg.SpaceID, "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("ListBills successful", "space_id", req.Msg.SpaceID, "count", len(bills))
	return connect.NewResponse(&ListBillsResponse{Bills: toBills(bills)}), nil
}

// ListChildren returns the active bills attached under a bill.
func (s *BillService) ListChildren(ctx context.Context, req *connect.Request[BillRequest]) (*connect.Response[ListBillsResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("ListChildren request received", "bill_id", req.Msg.BillID)

	bills, err := s.core.ListChildren(ctx, userID, req.Msg.BillID)
	if err != nil {
		s.logger.Warn("ListChildren failed", "bill_id", req.Msg.BillID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ListBillsResponse{Bills: toBills(bills)}), nil
}

// UpdateBill changes the fields set in the request.
func (s *BillService) UpdateBill(ctx context.Context, req *connect.Request[UpdateBillRequest]) (*connect.Response[BillResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("UpdateBill request received", "bill_id", req.Msg.BillID)

	b, err := s.core.UpdateBill(ctx, userID, req.Msg.BillID, req.Msg.BillUpdate)
	if err != nil {
		s.logger.Warn("UpdateBill failed", "bill_id", req.Msg.BillID, "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("Bill updated", "bill_id", b.ID)
	return connect.NewResponse(&BillResponse{Bill: toBill(b)}), nil
}

// DeactivateBill retires a bill. The row and its splits are kept.
func (s *BillService) DeactivateBill(ctx context.Context, req *connect.Request[BillRequest]) (*connect.Response[emptypb.Empty], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("DeactivateBill request received", "bill_id", req.Msg.BillID)

	if err := s.core.DeactivateBill(ctx, userID, req.Msg.BillID); err != nil {
		s.logger.Warn("DeactivateBill failed", "bill_id", req.Msg.BillID, "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("Bill deactivated", "bill_id", req.Msg.BillID)
	return connect.NewResponse(&emptypb.Empty{}), nil
}

// AttachChild links a bill under a parent in a recurrence chain.
func (s *BillService) AttachChild(ctx context.Context, req *connect.Request[AttachChildRequest]) (*connect.Response[BillResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("AttachChild request received", "parent_id", req.Msg.ParentID, "child_id", req.Msg.ChildID)

	b, err := s.core.AttachChild(ctx, userID, req.Msg.ParentID, req.Msg.ChildID)
	if err != nil {
		s.logger.Warn("AttachChild failed", "parent_id", req.Msg.ParentID, "child_id", req.Msg.ChildID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&BillResponse{Bill: toBill(b)}), nil
}

// Orphan detaches a bill from its parent.
func (s *BillService) Orphan(ctx context.Context, req *connect.Request[BillRequest]) (*connect.Response[BillResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Orphan request received", "bill_id", req.Msg.BillID)

	b, err := s.core.Orphan(ctx, userID, req.Msg.BillID)
	if err != nil {
		s.logger.Warn("Orphan failed", "bill_id", req.Msg.BillID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&BillResponse{Bill: toBill(b)}), nil
}

// SetPayers replaces the payer splits of a bill.
func (s *BillService) SetPayers(ctx context.Context, req *connect.Request[SetPayersRequest]) (*connect.Response[BillResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("SetPayers request received", "bill_id", req.Msg.BillID, "splits_count", len(req.Msg.Splits))

	b, err := s.core.SetPayers(ctx, userID, req.Msg.BillID, req.Msg.Splits)
	if err != nil {
		s.logger.Warn("SetPayers failed", "bill_id", req.Msg.BillID, "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("Payers set", "bill_id", b.ID, "split_state", b.SplitState)
	return connect.NewResponse(&BillResponse{Bill: toBill(b)}), nil
}

// SplitEvenly divides a bill equally among the listed members.
func (s *BillService) SplitEvenly(ctx context.Context, req *connect.Request[SplitEvenlyRequest]) (*connect.Response[BillResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("SplitEvenly request received", "bill_id", req.Msg.BillID, "participants", len(req.Msg.UserIDs))

	b, err := s.core.SplitEvenly(ctx, userID, req.Msg.BillID, req.Msg.UserIDs)
	if err != nil {
		s.logger.Warn("SplitEvenly failed", "bill_id", req.Msg.BillID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&BillResponse{Bill: toBill(b)}), nil
}

// ClearPayers resets a bill to having no split decision.
func (s *BillService) ClearPayers(ctx context.Context, req *connect.Request[BillRequest]) (*connect.Response[BillResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("ClearPayers request received", "bill_id", req.Msg.BillID)

	b, err := s.core.ClearPayers(ctx, userID, req.Msg.BillID)
	if err != nil {
		s.logger.Warn("ClearPayers failed", "bill_id", req.Msg.BillID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&BillResponse{Bill: toBill(b)}), nil
}

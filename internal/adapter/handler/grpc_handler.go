package handler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/inventory-service/internal/adapter/handler/rpc"
	"github.com/rl1809/inventory-service/internal/core/domain"
	"github.com/rl1809/inventory-service/internal/core/service"
)

type GRPCHandler struct {
	rpc.UnimplementedInventoryServiceServer
	inventoryService *service.InventoryService
}

func NewGRPCHandler(inventoryService *service.InventoryService) *GRPCHandler {
	return &GRPCHandler{inventoryService: inventoryService}
}

func (h *GRPCHandler) CreateInventory(ctx context.Context, req *rpc.CreateInventoryRequest) (*rpc.InventoryResponse, error) {
	inv, err := h.inventoryService.Create(ctx, req.GetProductUid(), int(req.QuantityAvailable), int(req.ReservedQuantity))
	if err != nil {
		return nil, grpcError(err)
	}

	return &rpc.InventoryResponse{
		Success:   true,
		Message:   "Inventory created",
		Inventory: toRPCInventory(inv),
	}, nil
}

func (h *GRPCHandler) GetInventory(ctx context.Context, req *rpc.GetInventoryRequest) (*rpc.InventoryResponse, error) {
	inv, err := h.inventoryService.GetByUID(ctx, req.GetProductUid())
	if err != nil {
		return nil, grpcError(err)
	}

	return &rpc.InventoryResponse{Success: true, Inventory: toRPCInventory(inv)}, nil
}

func (h *GRPCHandler) SetAvailable(ctx context.Context, req *rpc.SetAvailableRequest) (*rpc.AckResponse, error) {
	if err := h.inventoryService.SetAvailable(ctx, req.GetProductUid(), int(req.QuantityAvailable)); err != nil {
		return nil, grpcError(err)
	}
	return &rpc.AckResponse{Success: true, Message: "Inventory updated"}, nil
}

func (h *GRPCHandler) Reserve(ctx context.Context, req *rpc.StockRequest) (*rpc.AckResponse, error) {
	if err := h.inventoryService.Reserve(ctx, req.GetRequestId(), req.GetProductUid(), int(req.GetAmount())); err != nil {
		return nil, grpcError(err)
	}
	return &rpc.AckResponse{Success: true, Message: "Inventory reserved"}, nil
}

func (h *GRPCHandler) Release(ctx context.Context, req *rpc.StockRequest) (*rpc.AckResponse, error) {
	if err := h.inventoryService.Release(ctx, req.GetRequestId(), req.GetProductUid(), int(req.GetAmount())); err != nil {
		return nil, grpcError(err)
	}
	return &rpc.AckResponse{Success: true, Message: "Inventory released"}, nil
}

// UnaryLogger logs each unary call with its resulting status code.
func UnaryLogger(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	code := status.Code(err)
	event := log.Info()
	if code == codes.Internal || code == codes.Unavailable {
		event = log.Error().Err(err)
	}
	event.Str("method", info.FullMethod).
		Str("code", code.String()).
		Dur("duration", time.Since(start)).
		Msg("grpc request")

	return resp, err
}

func grpcError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidProductUID),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidQuantity):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrInventoryNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrInsufficientReservation),
		errors.Is(err, domain.ErrQuantityOverflow):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrDuplicateRequest),
		errors.Is(err, domain.ErrInventoryExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, domain.ErrPersistence):
		return status.Error(codes.Unavailable, "storage unavailable")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func toRPCInventory(inv *domain.Inventory) *rpc.Inventory {
	return &rpc.Inventory{
		Id:                inv.ID,
		ProductUid:        inv.ProductUID,
		QuantityAvailable: int64(inv.QuantityAvailable),
		ReservedQuantity:  int64(inv.ReservedQuantity),
		CreatedAt:         inv.CreatedAt,
		UpdatedAt:         inv.UpdatedAt,
	}
}

package handler

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/rl1809/inventory-service/internal/adapter/handler/rpc"
	"github.com/rl1809/inventory-service/internal/adapter/storage"
	"github.com/rl1809/inventory-service/internal/core/domain"
	"github.com/rl1809/inventory-service/internal/core/service"
)

func newTestClient(t *testing.T) rpc.InventoryServiceClient {
	t.Helper()

	svc := service.NewInventoryService(storage.NewMemoryAdapter(), nil, 0)
	lis := bufconn.Listen(1 << 20)

	srv := grpc.NewServer(grpc.UnaryInterceptor(UnaryLogger))
	rpc.RegisterInventoryServiceServer(srv, NewGRPCHandler(svc))
	go srv.Serve(lis)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}

	t.Cleanup(func() {
		conn.Close()
		srv.Stop()
		svc.Close()
	})
	return rpc.NewInventoryServiceClient(conn)
}

func TestGRPCHandler_Lifecycle(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	created, err := client.CreateInventory(ctx, &rpc.CreateInventoryRequest{ProductUid: "P1", QuantityAvailable: 5})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !created.Success || created.Inventory.Id == 0 {
		t.Fatalf("unexpected create response: %+v", created)
	}

	if _, err := client.Reserve(ctx, &rpc.StockRequest{ProductUid: "P1", Amount: 4}); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if _, err := client.Release(ctx, &rpc.StockRequest{ProductUid: "P1", Amount: 1}); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if _, err := client.SetAvailable(ctx, &rpc.SetAvailableRequest{ProductUid: "P1", QuantityAvailable: 7}); err != nil {
		t.Fatalf("set available failed: %v", err)
	}

	got, err := client.GetInventory(ctx, &rpc.GetInventoryRequest{ProductUid: "P1"})
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Inventory.QuantityAvailable != 7 || got.Inventory.ReservedQuantity != 3 {
		t.Errorf("expected 7/3, got %d/%d", got.Inventory.QuantityAvailable, got.Inventory.ReservedQuantity)
	}
}

func TestGRPCHandler_ErrorCodes(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	if _, err := client.CreateInventory(ctx, &rpc.CreateInventoryRequest{ProductUid: "P1", QuantityAvailable: 1}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := client.CreateInventory(ctx, &rpc.CreateInventoryRequest{ProductUid: "FULL", QuantityAvailable: domain.MaxQuantity, ReservedQuantity: 1}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	tests := []struct {
		name string
		call func() error
		want codes.Code
	}{
		{"not found", func() error {
			_, err := client.GetInventory(ctx, &rpc.GetInventoryRequest{ProductUid: "nope"})
			return err
		}, codes.NotFound},
		{"insufficient stock", func() error {
			_, err := client.Reserve(ctx, &rpc.StockRequest{ProductUid: "P1", Amount: 2})
			return err
		}, codes.FailedPrecondition},
		{"insufficient reservation", func() error {
			_, err := client.Release(ctx, &rpc.StockRequest{ProductUid: "P1", Amount: 1})
			return err
		}, codes.FailedPrecondition},
		{"quantity limit", func() error {
			_, err := client.Release(ctx, &rpc.StockRequest{ProductUid: "FULL", Amount: 1})
			return err
		}, codes.FailedPrecondition},
		{"invalid amount", func() error {
			_, err := client.Reserve(ctx, &rpc.StockRequest{ProductUid: "P1", Amount: -1})
			return err
		}, codes.InvalidArgument},
		{"already exists", func() error {
			_, err := client.CreateInventory(ctx, &rpc.CreateInventoryRequest{ProductUid: "P1"})
			return err
		}, codes.AlreadyExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := status.Code(tt.call()); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

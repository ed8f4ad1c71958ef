package rpc

import "time"

type CreateInventoryRequest struct {
	ProductUid        string `json:"product_uid"`
	QuantityAvailable int64  `json:"quantity_available"`
	ReservedQuantity  int64  `json:"reserved_quantity"`
}

type GetInventoryRequest struct {
	ProductUid string `json:"product_uid"`
}

type SetAvailableRequest struct {
	ProductUid        string `json:"product_uid"`
	QuantityAvailable int64  `json:"quantity_available"`
}

type StockRequest struct {
	RequestId  string `json:"request_id"`
	ProductUid string `json:"product_uid"`
	Amount     int64  `json:"amount"`
}

type Inventory struct {
	Id                int64     `json:"id"`
	ProductUid        string    `json:"product_uid"`
	QuantityAvailable int64     `json:"quantity_available"`
	ReservedQuantity  int64     `json:"reserved_quantity"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type InventoryResponse struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message"`
	Inventory *Inventory `json:"inventory,omitempty"`
}

type AckResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (r *CreateInventoryRequest) GetProductUid() string {
	if r == nil {
		return ""
	}
	return r.ProductUid
}

func (r *GetInventoryRequest) GetProductUid() string {
	if r == nil {
		return ""
	}
	return r.ProductUid
}

func (r *SetAvailableRequest) GetProductUid() string {
	if r == nil {
		return ""
	}
	return r.ProductUid
}

func (r *StockRequest) GetRequestId() string {
	if r == nil {
		return ""
	}
	return r.RequestId
}

func (r *StockRequest) GetProductUid() string {
	if r == nil {
		return ""
	}
	return r.ProductUid
}

func (r *StockRequest) GetAmount() int64 {
	if r == nil {
		return 0
	}
	return r.Amount
}

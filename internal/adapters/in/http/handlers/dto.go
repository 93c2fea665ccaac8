package handlers

import (
	"time"

	"ayyooya/internal/application/usecase"
	cartdom "ayyooya/internal/domain/cart"
	orderdom "ayyooya/internal/domain/order"
	productdom "ayyooya/internal/domain/product"
)

type orderDTO struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId"`
	CustomerName   string          `json:"customerName"`
	Phone          string          `json:"phone"`
	Address        string          `json:"address"`
	TotalPrice     int             `json:"totalPrice"`
	SlipURL        string          `json:"slipUrl"`
	Items          []orderdom.Item `json:"items"`
	Status         orderdom.Status `json:"status"`
	TrackingNumber *string         `json:"trackingNumber"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// SlipURLFunc turns a stored slip reference into a URL for display.
type SlipURLFunc func(ref string) string

func toOrderDTO(o orderdom.Order, slipURL SlipURLFunc) orderDTO {
	url := o.SlipRef
	if slipURL != nil {
		url = slipURL(o.SlipRef)
	}
	items := o.Items
	if items == nil {
		items = []orderdom.Item{}
	}
	return orderDTO{
		ID:             o.ID,
		UserID:         o.UserID,
		CustomerName:   o.CustomerName,
		Phone:          o.Phone,
		Address:        o.Address,
		TotalPrice:     o.TotalPrice,
		SlipURL:        url,
		Items:          items,
		Status:         o.Status,
		TrackingNumber: o.TrackingNumber,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

func toOrderDTOs(xs []orderdom.Order, slipURL SlipURLFunc) []orderDTO {
	out := make([]orderDTO, 0, len(xs))
	for _, o := range xs {
		out = append(out, toOrderDTO(o, slipURL))
	}
	return out
}

// orderDetailDTO is an order plus the current state of each ordered
// product, in item order.
type orderDetailDTO struct {
	orderDTO
	Products []orderProductDTO `json:"products"`
}

type orderProductDTO struct {
	ProductID string `json:"productId"`
	Exists    bool   `json:"exists"`
	IsSold    bool   `json:"isSold"`
}

func toOrderDetailDTO(d usecase.OrderDetail, slipURL SlipURLFunc) orderDetailDTO {
	out := orderDetailDTO{orderDTO: toOrderDTO(d.Order, slipURL), Products: make([]orderProductDTO, 0, len(d.Items))}
	for _, it := range d.Items {
		p := orderProductDTO{ProductID: it.Item.ProductID}
		if it.Product != nil {
			p.Exists = true
			p.IsSold = it.Product.IsSold
		}
		out.Products = append(out.Products, p)
	}
	return out
}

// boardEntryDTO is one admin row. PendingAction is set while an action
// issued from this process has not been confirmed by a refresh.
type boardEntryDTO struct {
	Order         orderDTO        `json:"order"`
	Status        orderdom.Status `json:"status"`
	PendingAction string          `json:"pendingAction,omitempty"`
}

func toBoardDTOs(xs []usecase.Entry, slipURL SlipURLFunc) []boardEntryDTO {
	out := make([]boardEntryDTO, 0, len(xs))
	for _, e := range xs {
		d := boardEntryDTO{Order: toOrderDTO(e.Order(), slipURL), Status: e.Effective()}
		if in, ok := e.(usecase.Intent); ok {
			if in.Deleting() {
				d.PendingAction = "delete"
			} else {
				d.PendingAction = string(in.Target)
			}
		}
		out = append(out, d)
	}
	return out
}

type productDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Price       int       `json:"price"`
	Size        string    `json:"size"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	ImageURL    []string  `json:"image_url"`
	Thumbnail   string    `json:"thumbnail"`
	IsSold      bool      `json:"is_sold"`
	CreatedAt   time.Time `json:"created_at"`
}

func toProductDTO(p productdom.Product) productDTO {
	imgs := p.Images
	if imgs == nil {
		imgs = []string{}
	}
	return productDTO{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Size:        p.Size,
		Category:    p.Category,
		Description: p.Description,
		ImageURL:    imgs,
		Thumbnail:   p.Thumbnail(),
		IsSold:      p.IsSold,
		CreatedAt:   p.CreatedAt,
	}
}

type cartDTO struct {
	Items cartdom.Items `json:"items"`
	Total int           `json:"total"`
	Count int           `json:"count"`
}

func toCartDTO(s usecase.CartSnapshot) cartDTO {
	items := s.Items
	if items == nil {
		items = cartdom.Items{}
	}
	return cartDTO{Items: items, Total: s.Total, Count: s.Count}
}

package firestore

import (
	"cloud.google.com/go/firestore"

	cartdom "ayyooya/internal/domain/cart"
	orderdom "ayyooya/internal/domain/order"
)

func docToOrder(snap *firestore.DocumentSnapshot) (orderdom.Order, error) {
	return mapToOrder(snap.Ref.ID, snap.Data()), nil
}

func mapToOrder(id string, data map[string]any) orderdom.Order {
	o := orderdom.Order{
		ID:             id,
		UserID:         asString(data["userId"]),
		CustomerName:   asString(data["customerName"]),
		Phone:          asString(data["phone"]),
		Address:        asString(data["address"]),
		TotalPrice:     asInt(data["totalPrice"]),
		SlipRef:        asString(data["slipUrl"]),
		Status:         orderdom.ParseStatus(asString(data["status"])),
		TrackingNumber: asStringPtr(data["trackingNumber"]),
		Items:          []orderdom.Item{},
	}
	if t, ok := asTime(data["createdAt"]); ok {
		o.CreatedAt = t
	}
	if t, ok := asTime(data["updatedAt"]); ok {
		o.UpdatedAt = t
	}
	if raw, ok := data["items"].([]any); ok {
		for _, x := range raw {
			m, ok := x.(map[string]any)
			if !ok {
				continue
			}
			o.Items = append(o.Items, orderdom.Item{
				ProductID: asString(m["id"]),
				Name:      asString(m["name"]),
				Price:     asInt(m["price"]),
				Image:     cartdom.ImageRefFromAny(m["imageUrl"]),
				Size:      asString(m["size"]),
			})
		}
	}
	return o
}

func orderToDoc(o orderdom.Order) map[string]any {
	items := make([]map[string]any, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, map[string]any{
			"id":       it.ProductID,
			"name":     it.Name,
			"price":    it.Price,
			"imageUrl": it.Image.Any(),
			"size":     it.Size,
		})
	}
	var tracking any
	if o.TrackingNumber != nil {
		tracking = *o.TrackingNumber
	}
	return map[string]any{
		"userId":         o.UserID,
		"customerName":   o.CustomerName,
		"phone":          o.Phone,
		"address":        o.Address,
		"totalPrice":     o.TotalPrice,
		"slipUrl":        o.SlipRef,
		"items":          items,
		"status":         string(o.Status),
		"trackingNumber": tracking,
		"createdAt":      o.CreatedAt,
		"updatedAt":      o.UpdatedAt,
	}
}

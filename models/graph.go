package models

// OrderProductRow is one (user, order, product) triple from the order/item join.
type OrderProductRow struct {
	UserId         int    `gorm:"column:user_id"`
	OrderId        int    `gorm:"column:order_id"`
	MongoProductId string `gorm:"column:mongo_product_id"`
}

// OrderGroup collapses the triples of one order into a single graph write.
type OrderGroup struct {
	OrderId    int
	UserId     int
	ProductIds []string
}

// Params is the UNWIND row shape expected by the order merge statement.
func (g OrderGroup) Params() map[string]any {
	return map[string]any{
		"oid":  int64(g.OrderId),
		"uid":  int64(g.UserId),
		"pids": g.ProductIds,
	}
}

// ProductNode is the property set merged onto a Product node.
type ProductNode struct {
	ProductId string
	Name      string
	Category  string
}

func (n ProductNode) Params() map[string]any {
	return map[string]any{
		"id":       n.ProductId,
		"name":     n.Name,
		"category": n.Category,
	}
}

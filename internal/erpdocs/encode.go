package erpdocs

// Encode functions produce external-name payloads ready for resource writes.
// Numeric fields go out as floats and checkboxes as 0/1, matching what the
// ERP emits itself. Zero-valued optional fields are included so an encode of
// a decoded document reproduces every declared field.

func EncodeItem(item *Item) map[string]any {
	return Untranslate(DoctypeItem, map[string]any{
		"name":             item.Name,
		"code":             item.Code,
		"title":            item.Title,
		"description":      item.Description,
		"long_description": item.LongDescription,
		"price":            item.Price.InexactFloat64(),
		"thumbnail":        item.Thumbnail,
		"has_variants":     boolToInt(item.HasVariants),
		"variant_of":       item.VariantOf,
		"warehouse":        item.Warehouse,
		"item_group":       item.ItemGroup,
	})
}

func EncodeBin(bin *Bin) map[string]any {
	return Untranslate(DoctypeBin, map[string]any{
		"name":          bin.Name,
		"item_code":     bin.ItemCode,
		"warehouse":     bin.Warehouse,
		"projected_qty": bin.ProjectedQty,
	})
}

func EncodeItemPrice(price *ItemPrice) map[string]any {
	return Untranslate(DoctypeItemPrice, map[string]any{
		"name":      price.Name,
		"item_code": price.ItemCode,
		"rate":      price.Rate.InexactFloat64(),
	})
}

func EncodeCustomer(customer *Customer) map[string]any {
	return Untranslate(DoctypeCustomer, map[string]any{
		"name":  customer.Name,
		"title": customer.Title,
		"group": customer.Group,
	})
}

func EncodeContact(contact *Contact) map[string]any {
	return Untranslate(DoctypeContact, map[string]any{
		"name":       contact.Name,
		"first_name": contact.FirstName,
		"last_name":  contact.LastName,
		"user":       contact.User,
	})
}

func EncodeUser(user *User) map[string]any {
	return Untranslate(DoctypeUser, map[string]any{
		"name":       user.Name,
		"email":      user.Email,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
	})
}

func EncodeSalesOrder(order *SalesOrder) map[string]any {
	items := make([]any, 0, len(order.Items))
	for i := range order.Items {
		items = append(items, EncodeSalesOrderItem(&order.Items[i]))
	}
	return Untranslate(DoctypeSalesOrder, map[string]any{
		"name":          order.Name,
		"title":         order.Title,
		"customer":      order.Customer,
		"date":          order.Date,
		"amount_total":  order.AmountTotal.InexactFloat64(),
		"status":        order.Status,
		"docstatus":     order.Docstatus,
		"order_type":    order.OrderType,
		"shipping_rule": order.ShippingRule,
		"items":         items,
	})
}

func EncodeSalesOrderItem(item *SalesOrderItem) map[string]any {
	return Untranslate(doctypeSalesOrderItem, map[string]any{
		"name":          item.Name,
		"item_code":     item.ItemCode,
		"item_name":     item.ItemName,
		"description":   item.Description,
		"quantity":      item.Quantity,
		"rate":          item.Rate.InexactFloat64(),
		"amount":        item.Amount.InexactFloat64(),
		"warehouse":     item.Warehouse,
		"item_group":    item.ItemGroup,
		"projected_qty": item.ProjectedQty,
	})
}

package erpdocs

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/avidal-labs/brewshop-backend/pkg/errors"
)

// Item is a sellable product. Variants and OrderableQty are filled by the
// catalog service, they are not resource fields.
type Item struct {
	Name            string          `json:"name"`
	Code            string          `json:"code"`
	Title           string          `json:"title"`
	Description     string          `json:"description,omitempty"`
	LongDescription string          `json:"long_description,omitempty"`
	Price           decimal.Decimal `json:"price"`
	Thumbnail       string          `json:"thumbnail,omitempty"`
	HasVariants     bool            `json:"has_variants"`
	VariantOf       string          `json:"variant_of,omitempty"`
	Warehouse       string          `json:"warehouse,omitempty"`
	ItemGroup       string          `json:"item_group,omitempty"`

	Variants     []Item `json:"variants,omitempty"`
	OrderableQty int    `json:"orderable_qty"`
}

type Bin struct {
	Name         string  `json:"name"`
	ItemCode     string  `json:"item_code"`
	Warehouse    string  `json:"warehouse"`
	ProjectedQty float64 `json:"projected_qty"`
}

type ItemPrice struct {
	Name     string          `json:"name"`
	ItemCode string          `json:"item_code"`
	Rate     decimal.Decimal `json:"rate"`
}

type Customer struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Group string `json:"group,omitempty"`
}

type Contact struct {
	Name      string `json:"name"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	User      string `json:"user,omitempty"`
}

type DynamicLink struct {
	Name        string `json:"name"`
	Parent      string `json:"parent"`
	ParentType  string `json:"parent_type"`
	ParentField string `json:"parent_field"`
	LinkDoctype string `json:"link_doctype"`
	LinkName    string `json:"link_name"`
}

type User struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type SalesOrder struct {
	Name         string           `json:"name"`
	Title        string           `json:"title,omitempty"`
	Customer     string           `json:"customer"`
	Date         string           `json:"date"`
	AmountTotal  decimal.Decimal  `json:"amount_total"`
	Status       string           `json:"status"`
	Docstatus    int              `json:"docstatus"`
	OrderType    string           `json:"order_type,omitempty"`
	ShippingRule string           `json:"shipping_rule,omitempty"`
	Items        []SalesOrderItem `json:"items"`
}

type SalesOrderItem struct {
	Name         string          `json:"name"`
	ItemCode     string          `json:"item_code"`
	ItemName     string          `json:"item_name,omitempty"`
	Description  string          `json:"description,omitempty"`
	Quantity     int             `json:"quantity"`
	Rate         decimal.Decimal `json:"rate"`
	Amount       decimal.Decimal `json:"amount"`
	Warehouse    string          `json:"warehouse,omitempty"`
	ItemGroup    string          `json:"item_group,omitempty"`
	ProjectedQty float64         `json:"projected_qty"`
}

// translated runs the field table and enforces the one required field every
// persisted document carries.
func translated(doctype Doctype, raw map[string]any) (map[string]any, error) {
	fields := Translate(doctype, raw)
	if asString(fields["name"]) == "" {
		return nil, errors.New(errors.CodeValidation,
			fmt.Sprintf("%s document is missing its name", doctype))
	}
	return fields, nil
}

func DecodeItem(raw map[string]any) (*Item, error) {
	fields, err := translated(DoctypeItem, raw)
	if err != nil {
		return nil, err
	}
	return &Item{
		Name:            asString(fields["name"]),
		Code:            asString(fields["code"]),
		Title:           asString(fields["title"]),
		Description:     asString(fields["description"]),
		LongDescription: asString(fields["long_description"]),
		Price:           asDecimal(fields["price"]),
		Thumbnail:       asString(fields["thumbnail"]),
		HasVariants:     asBool(fields["has_variants"]),
		VariantOf:       asString(fields["variant_of"]),
		Warehouse:       asString(fields["warehouse"]),
		ItemGroup:       asString(fields["item_group"]),
	}, nil
}

func DecodeBin(raw map[string]any) (*Bin, error) {
	fields, err := translated(DoctypeBin, raw)
	if err != nil {
		return nil, err
	}
	return &Bin{
		Name:         asString(fields["name"]),
		ItemCode:     asString(fields["item_code"]),
		Warehouse:    asString(fields["warehouse"]),
		ProjectedQty: asFloat(fields["projected_qty"]),
	}, nil
}

func DecodeItemPrice(raw map[string]any) (*ItemPrice, error) {
	fields, err := translated(DoctypeItemPrice, raw)
	if err != nil {
		return nil, err
	}
	return &ItemPrice{
		Name:     asString(fields["name"]),
		ItemCode: asString(fields["item_code"]),
		Rate:     asDecimal(fields["rate"]),
	}, nil
}

func DecodeCustomer(raw map[string]any) (*Customer, error) {
	fields, err := translated(DoctypeCustomer, raw)
	if err != nil {
		return nil, err
	}
	return &Customer{
		Name:  asString(fields["name"]),
		Title: asString(fields["title"]),
		Group: asString(fields["group"]),
	}, nil
}

func DecodeContact(raw map[string]any) (*Contact, error) {
	fields, err := translated(DoctypeContact, raw)
	if err != nil {
		return nil, err
	}
	return &Contact{
		Name:      asString(fields["name"]),
		FirstName: asString(fields["first_name"]),
		LastName:  asString(fields["last_name"]),
		User:      asString(fields["user"]),
	}, nil
}

func DecodeDynamicLink(raw map[string]any) (*DynamicLink, error) {
	fields, err := translated(DoctypeDynamicLink, raw)
	if err != nil {
		return nil, err
	}
	return &DynamicLink{
		Name:        asString(fields["name"]),
		Parent:      asString(fields["parent"]),
		ParentType:  asString(fields["parent_type"]),
		ParentField: asString(fields["parent_field"]),
		LinkDoctype: asString(fields["link_doctype"]),
		LinkName:    asString(fields["link_name"]),
	}, nil
}

func DecodeUser(raw map[string]any) (*User, error) {
	fields, err := translated(DoctypeUser, raw)
	if err != nil {
		return nil, err
	}
	return &User{
		Name:      asString(fields["name"]),
		Email:     asString(fields["email"]),
		FirstName: asString(fields["first_name"]),
		LastName:  asString(fields["last_name"]),
	}, nil
}

func DecodeSalesOrder(raw map[string]any) (*SalesOrder, error) {
	fields, err := translated(DoctypeSalesOrder, raw)
	if err != nil {
		return nil, err
	}
	order := &SalesOrder{
		Name:         asString(fields["name"]),
		Title:        asString(fields["title"]),
		Customer:     asString(fields["customer"]),
		Date:         asString(fields["date"]),
		AmountTotal:  asDecimal(fields["amount_total"]),
		Status:       asString(fields["status"]),
		Docstatus:    asInt(fields["docstatus"]),
		OrderType:    asString(fields["order_type"]),
		ShippingRule: asString(fields["shipping_rule"]),
	}
	if rows, ok := fields["items"].([]any); ok {
		order.Items = make([]SalesOrderItem, 0, len(rows))
		for _, row := range rows {
			rawItem, ok := row.(map[string]any)
			if !ok {
				return nil, errors.New(errors.CodeValidation,
					fmt.Sprintf("sales order %s has a malformed item row", order.Name))
			}
			item, err := DecodeSalesOrderItem(rawItem)
			if err != nil {
				return nil, err
			}
			order.Items = append(order.Items, *item)
		}
	}
	return order, nil
}

func DecodeSalesOrderItem(raw map[string]any) (*SalesOrderItem, error) {
	fields, err := translated(doctypeSalesOrderItem, raw)
	if err != nil {
		return nil, err
	}
	return &SalesOrderItem{
		Name:         asString(fields["name"]),
		ItemCode:     asString(fields["item_code"]),
		ItemName:     asString(fields["item_name"]),
		Description:  asString(fields["description"]),
		Quantity:     asInt(fields["quantity"]),
		Rate:         asDecimal(fields["rate"]),
		Amount:       asDecimal(fields["amount"]),
		Warehouse:    asString(fields["warehouse"]),
		ItemGroup:    asString(fields["item_group"]),
		ProjectedQty: asFloat(fields["projected_qty"]),
	}, nil
}

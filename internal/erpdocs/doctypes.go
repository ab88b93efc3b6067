// Package erpdocs is the single translation boundary between raw ERP resource
// payloads and typed domain documents. Each doctype owns a static field table
// mapping external resource field names to internal attribute names; no other
// package touches raw payloads.
package erpdocs

type Doctype string

const (
	DoctypeItem         Doctype = "Item"
	DoctypeItemGroup    Doctype = "Item Group"
	DoctypeCustomer     Doctype = "Customer"
	DoctypeContact      Doctype = "Contact"
	DoctypeDynamicLink  Doctype = "Dynamic Link"
	DoctypeSalesOrder   Doctype = "Sales Order"
	DoctypeAddress      Doctype = "Address"
	DoctypeBin          Doctype = "Bin"
	DoctypeItemPrice    Doctype = "Item Price"
	DoctypeJournalEntry Doctype = "Journal Entry"
	DoctypePaymentEntry Doctype = "Payment Entry"
	DoctypeUser         Doctype = "User"
)

// Sales order lifecycle constants. Submission happens by flipping docstatus,
// the status string mirrors it server-side.
const (
	StatusDraft     = "Draft"
	StatusCancelled = "Cancelled"

	DocstatusDraft     = 0
	DocstatusSubmitted = 1

	OrderTypeShoppingCart = "Shopping Cart"
)

// fieldTables maps external resource field names to internal attribute names,
// per doctype. Translation is total and lossless for declared fields.
var fieldTables = map[Doctype]map[string]string{
	DoctypeItem: {
		"name":                 "name",
		"item_code":            "code",
		"item_name":            "title",
		"description":          "description",
		"web_long_description": "long_description",
		"standard_rate":        "price",
		"thumbnail":            "thumbnail",
		"has_variants":         "has_variants",
		"variant_of":           "variant_of",
		"website_warehouse":    "warehouse",
		"item_group":           "item_group",
	},
	DoctypeBin: {
		"name":          "name",
		"item_code":     "item_code",
		"warehouse":     "warehouse",
		"projected_qty": "projected_qty",
	},
	DoctypeItemPrice: {
		"name":            "name",
		"item_code":       "item_code",
		"price_list_rate": "rate",
	},
	DoctypeCustomer: {
		"name":           "name",
		"customer_name":  "title",
		"customer_group": "group",
	},
	DoctypeContact: {
		"name":       "name",
		"first_name": "first_name",
		"last_name":  "last_name",
		"user":       "user",
	},
	DoctypeDynamicLink: {
		"name":         "name",
		"parent":       "parent",
		"parenttype":   "parent_type",
		"parentfield":  "parent_field",
		"link_doctype": "link_doctype",
		"link_name":    "link_name",
	},
	DoctypeUser: {
		"name":       "name",
		"email":      "email",
		"first_name": "first_name",
		"last_name":  "last_name",
	},
	DoctypeAddress: {
		"name":          "name",
		"address_line1": "line1",
		"address_line2": "line2",
		"city":          "city",
		"country":       "country",
		"pincode":       "postal_code",
	},
	DoctypeSalesOrder: {
		"name":             "name",
		"title":            "title",
		"customer":         "customer",
		"transaction_date": "date",
		"grand_total":      "amount_total",
		"status":           "status",
		"docstatus":        "docstatus",
		"order_type":       "order_type",
		"shipping_rule":    "shipping_rule",
		"items":            "items",
	},
	// Sales Order Item is a child table, addressed through its parent.
	"Sales Order Item": {
		"name":          "name",
		"item_code":     "item_code",
		"item_name":     "item_name",
		"description":   "description",
		"qty":           "quantity",
		"rate":          "rate",
		"net_amount":    "amount",
		"warehouse":     "warehouse",
		"item_group":    "item_group",
		"projected_qty": "projected_qty",
	},
	DoctypePaymentEntry: {
		"name":            "name",
		"title":           "title",
		"party":           "party",
		"party_type":      "party_type",
		"payment_type":    "payment_type",
		"mode_of_payment": "mode_of_payment",
		"paid_amount":     "paid_amount",
		"received_amount": "received_amount",
		"reference_no":    "reference_no",
		"reference_date":  "reference_date",
		"paid_to":         "paid_to",
		"docstatus":       "docstatus",
	},
}

const doctypeSalesOrderItem Doctype = "Sales Order Item"

// FieldTable returns a copy of the doctype's external→internal field table.
func FieldTable(doctype Doctype) map[string]string {
	table := fieldTables[doctype]
	out := make(map[string]string, len(table))
	for ext, internal := range table {
		out[ext] = internal
	}
	return out
}

// Translate renames declared external fields to internal names. Fields absent
// from the table are dropped, fields absent from raw stay absent.
func Translate(doctype Doctype, raw map[string]any) map[string]any {
	table := fieldTables[doctype]
	out := make(map[string]any, len(raw))
	for ext, internal := range table {
		if value, ok := raw[ext]; ok {
			out[internal] = value
		}
	}
	return out
}

// Untranslate renames internal fields back to their external names.
func Untranslate(doctype Doctype, fields map[string]any) map[string]any {
	table := fieldTables[doctype]
	reverse := make(map[string]string, len(table))
	for ext, internal := range table {
		reverse[internal] = ext
	}
	out := make(map[string]any, len(fields))
	for internal, value := range fields {
		if ext, ok := reverse[internal]; ok {
			out[ext] = value
		}
	}
	return out
}

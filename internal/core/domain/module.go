package domain

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ColumnType drives form defaults and input rendering.
type ColumnType string

const (
	ColumnText    ColumnType = "text"
	ColumnNumber  ColumnType = "number"
	ColumnDate    ColumnType = "date"
	ColumnBoolean ColumnType = "boolean"
	ColumnSelect  ColumnType = "select"
)

// DateLayout is the on-record format of date columns.
const DateLayout = "2006-01-02"

// Column describes one editable field of a module's records.
type Column struct {
	Name     string
	Label    string
	Type     ColumnType
	Required bool
	Options  []string
}

// DefaultValue returns the reset value of the column as of now.
func (c Column) DefaultValue(now time.Time) any {
	switch c.Type {
	case ColumnNumber:
		return float64(0)
	case ColumnDate:
		return now.Format(DateLayout)
	default:
		return ""
	}
}

// Parse converts raw text input into the column's record value.
func (c Column) Parse(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch c.Type {
	case ColumnNumber:
		if raw == "" {
			return float64(0), nil
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be a number", ErrInvalidRecord, c.Name)
		}
		return f, nil
	case ColumnBoolean:
		if raw == "" {
			return false, nil
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be true or false", ErrInvalidRecord, c.Name)
		}
		return b, nil
	case ColumnDate:
		if raw == "" {
			return "", nil
		}
		if _, err := time.Parse(DateLayout, raw); err != nil {
			return nil, fmt.Errorf("%w: %s must be a %s date", ErrInvalidRecord, c.Name, DateLayout)
		}
		return raw, nil
	case ColumnSelect:
		if raw != "" && !slices.Contains(c.Options, raw) {
			return nil, fmt.Errorf("%w: %s must be one of %s", ErrInvalidRecord, c.Name, strings.Join(c.Options, ", "))
		}
		return raw, nil
	default:
		return raw, nil
	}
}

// Module is a feature page backed by one collection.
type Module struct {
	Title string
	// Collection is the remote table name. Empty means local-only, keyed by CollectionKey(Title).
	Collection string
	// Resource is the permission resource checked for every operation.
	Resource    string
	Columns     []Column
	OwnerScoped bool
	// OrderField is the remote most-recent-first ordering field.
	OrderField string
}

// Key returns the collection key the module's records live under.
func (m Module) Key() string {
	if m.Collection != "" {
		return m.Collection
	}
	return CollectionKey(m.Title)
}

// Column returns the column named name.
func (m Module) Column(name string) (Column, bool) {
	for _, c := range m.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// CollectionKey derives a collection key from a human title:
// "Lost & Found" becomes "lost_and_found".
func CollectionKey(title string) string {
	title = strings.ReplaceAll(title, "&", " and ")
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

const defaultOrderField = "created_at"

var roomStatuses = []string{"Vacant", "Occupied", "Cleaning", "Out of Order"}

var modules = []Module{
	{
		Title: "Reservations", Collection: "reservations", Resource: "reservations", OrderField: defaultOrderField,
		Columns: []Column{
			{Name: "guest_name", Label: "Guest", Type: ColumnText, Required: true},
			{Name: "room_number", Label: "Room", Type: ColumnText, Required: true},
			{Name: "check_in", Label: "Check-in", Type: ColumnDate, Required: true},
			{Name: "check_out", Label: "Check-out", Type: ColumnDate, Required: true},
			{Name: "guests", Label: "Guests", Type: ColumnNumber},
			{Name: "status", Label: "Status", Type: ColumnSelect, Options: []string{"Booked", "Checked In", "Checked Out", "Cancelled"}},
		},
	},
	{
		Title: "Rooms", Collection: "rooms", Resource: "rooms", OrderField: defaultOrderField,
		Columns: []Column{
			{Name: "number", Label: "Number", Type: ColumnText, Required: true},
			{Name: "type", Label: "Type", Type: ColumnSelect, Options: []string{"Single", "Double", "Suite"}},
			{Name: "status", Label: "Status", Type: ColumnSelect, Required: true, Options: roomStatuses},
			{Name: "rate", Label: "Nightly rate", Type: ColumnNumber},
		},
	},
	{
		Title: "Guests", Collection: "guests", Resource: "guests", OrderField: defaultOrderField,
		Columns: []Column{
			{Name: "full_name", Label: "Name", Type: ColumnText, Required: true},
			{Name: "email", Label: "Email", Type: ColumnText},
			{Name: "phone", Label: "Phone", Type: ColumnText},
			{Name: "vip", Label: "VIP", Type: ColumnBoolean},
		},
	},
	{
		Title: "Staff", Collection: "staff", Resource: "staff", OrderField: defaultOrderField,
		Columns: []Column{
			{Name: "full_name", Label: "Name", Type: ColumnText, Required: true},
			{Name: "department", Label: "Department", Type: ColumnText, Required: true},
			{Name: "shift", Label: "Shift", Type: ColumnSelect, Options: []string{"Morning", "Evening", "Night"}},
			{Name: "hired_on", Label: "Hired", Type: ColumnDate},
		},
	},
	{
		Title: "Housekeeping Tasks", Collection: "housekeeping_tasks", Resource: "housekeeping_tasks", OrderField: defaultOrderField,
		Columns: []Column{
			{Name: "room_number", Label: "Room", Type: ColumnText, Required: true},
			{Name: "task", Label: "Task", Type: ColumnText, Required: true},
			{Name: "assigned_to", Label: "Assigned to", Type: ColumnText},
			{Name: "due", Label: "Due", Type: ColumnDate},
		},
	},
	{
		Title: "Inventory", Collection: "inventory", Resource: "inventory", OrderField: defaultOrderField,
		Columns: []Column{
			{Name: "item", Label: "Item", Type: ColumnText, Required: true},
			{Name: "quantity", Label: "Quantity", Type: ColumnNumber, Required: true},
			{Name: "unit", Label: "Unit", Type: ColumnText},
			{Name: "reorder_level", Label: "Reorder level", Type: ColumnNumber},
		},
	},
	{
		Title: "Maintenance Requests", Collection: "maintenance_requests", Resource: "maintenance_requests", OrderField: defaultOrderField,
		Columns: []Column{
			{Name: "location", Label: "Location", Type: ColumnText, Required: true},
			{Name: "issue", Label: "Issue", Type: ColumnText, Required: true},
			{Name: "priority", Label: "Priority", Type: ColumnSelect, Options: []string{"Low", "Medium", "High"}},
			{Name: "reported_on", Label: "Reported", Type: ColumnDate},
		},
	},
	{
		Title: "Restaurant Orders", Collection: "restaurant_orders", Resource: "restaurant_orders", OrderField: defaultOrderField,
		Columns: []Column{
			{Name: "table_or_room", Label: "Table / Room", Type: ColumnText, Required: true},
			{Name: "items", Label: "Items", Type: ColumnText, Required: true},
			{Name: "total", Label: "Total", Type: ColumnNumber},
		},
	},
	{
		Title: "Security Incidents", Collection: "incidents", Resource: "incidents", OrderField: defaultOrderField,
		Columns: []Column{
			{Name: "summary", Label: "Summary", Type: ColumnText, Required: true},
			{Name: "location", Label: "Location", Type: ColumnText},
			{Name: "occurred_on", Label: "Date", Type: ColumnDate, Required: true},
		},
	},
	{
		Title: "Transport Bookings", Collection: "transport_bookings", Resource: "transport_bookings", OrderField: defaultOrderField,
		Columns: []Column{
			{Name: "guest_name", Label: "Guest", Type: ColumnText, Required: true},
			{Name: "pickup", Label: "Pickup", Type: ColumnText, Required: true},
			{Name: "destination", Label: "Destination", Type: ColumnText},
			{Name: "date", Label: "Date", Type: ColumnDate, Required: true},
		},
	},
	{
		Title: "Service Requests", Collection: "service_requests", Resource: "service_requests", OrderField: defaultOrderField, OwnerScoped: true,
		Columns: []Column{
			{Name: "request", Label: "Request", Type: ColumnText, Required: true},
			{Name: "room_number", Label: "Room", Type: ColumnText},
		},
	},
	{
		// Kept on the local backend only.
		Title: "Lost & Found", Resource: "lost_and_found",
		Columns: []Column{
			{Name: "item", Label: "Item", Type: ColumnText, Required: true},
			{Name: "found_at", Label: "Found at", Type: ColumnText},
			{Name: "found_on", Label: "Date", Type: ColumnDate},
			{Name: "claimed", Label: "Claimed", Type: ColumnBoolean},
		},
	},
}

// Modules returns the registered feature modules in display order.
func Modules() []Module {
	out := make([]Module, len(modules))
	copy(out, modules)
	return out
}

// ModuleByKey finds the module whose collection key is key.
func ModuleByKey(key string) (Module, bool) {
	for _, m := range modules {
		if m.Key() == key {
			return m, true
		}
	}
	return Module{}, false
}

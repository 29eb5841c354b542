package sql_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateModel(t *testing.T) {
	files := generateCommerce(t)
	model := files["order.go"]

	t.Run("constants_and_struct", func(t *testing.T) {
		assert.Contains(t, model, "OrderTable")
		assert.Contains(t, model, `"orders"`)
		assert.Contains(t, model, "type Order struct {")
		assert.Contains(t, model, "OrderColumns")
		// Loaded snapshots back the orphan diff and join-table maintenance.
		assert.Contains(t, model, "loadedItems")
	})

	t.Run("scan_plumbing", func(t *testing.T) {
		assert.Contains(t, model, "func (*Order) scanValues() []any {")
		assert.Contains(t, model, "func (m *Order) assignValues(values []any) error {")
		assert.Contains(t, model, "unexpected number of scan values")
	})
}

func TestGenerateSyncHelpers(t *testing.T) {
	files := generateCommerce(t)
	model := files["order.go"]

	// Exported helpers keep both sides consistent through the paired
	// side's raw primitives, so no call chain recurses.
	assert.Contains(t, model, "func (m *Order) SetCustomer(v *Customer) {")
	assert.Contains(t, model, "v.addOrders(m)")
	assert.Contains(t, model, "func (m *Order) AddToItems(v *OrderItem) {")
	assert.Contains(t, model, "func (m *Order) RemoveFromItems(v *OrderItem) {")
	assert.Contains(t, model, "func (m *Order) ItemsOrErr() ([]*OrderItem, error) {")

	// The raw setter of an owning side maintains the foreign-key column.
	assert.Contains(t, model, "func (m *Order) setCustomer(v *Customer) {")
	assert.Contains(t, model, "m.CustomerID = v.ID")

	// Orphan diff: loaded children no longer in the collection.
	customer := files["customer.go"]
	assert.Contains(t, customer, "func (m *Customer) orphanedOrders() []*Order {")
	assert.Contains(t, customer, "if !m.containsOrders(old) {")
}

package mock

import (
	"fmt"
	"reflect"

	"gorm.io/gorm"
)

// Connection supplies the current ledger database handle.
type Connection interface {
	DB() *gorm.DB
}

// Db gives step definitions read access to the ledger tables by name.
type Db struct {
	conn   Connection
	models map[string]any
}

// NewDb wraps the ledger connection with the table name to model mapping.
func NewDb(conn Connection, models map[string]any) *Db {
	return &Db{
		conn:   conn,
		models: models,
	}
}

// DbConn returns the current ledger handle.
func (d *Db) DbConn() *gorm.DB {
	return d.conn.DB()
}

// GetModel returns the model registered for the table.
func (d *Db) GetModel(table string) (any, bool) {
	model, ok := d.models[table]
	return model, ok
}

// Count returns the rows of table matching criteria, including soft-deleted
// rows unless criteria filters on deleted_at.
func (d *Db) Count(table string, criteria map[string]any) (int, error) {
	model, ok := d.GetModel(table)
	if !ok {
		return 0, fmt.Errorf("table '%s' not found in models", table)
	}
	conn := d.DbConn()
	if conn == nil {
		return 0, fmt.Errorf("ledger store is not open")
	}

	entityType := reflect.TypeOf(model).Elem()
	entitySlicePtr := reflect.New(reflect.SliceOf(entityType))

	query := conn.Unscoped()
	for key, value := range criteria {
		if value == nil {
			query = query.Where(fmt.Sprintf("%s IS NULL", key))
			continue
		}
		query = query.Where(fmt.Sprintf("%s = ?", key), value)
	}

	if err := query.Find(entitySlicePtr.Interface()).Error; err != nil {
		return 0, err
	}
	return entitySlicePtr.Elem().Len(), nil
}

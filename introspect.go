package dtable

import (
	"context"
	"fmt"
	"log"
	"sync"

	"dtable/drivers/schema"
)

// IntrospectorFactory builds an Introspector from an adapter. Drivers register
// a factory at init time, keyed by dialect name, to avoid import cycles.
type IntrospectorFactory func(adapter DBAdapter) schema.Introspector

var (
	introspectorMu       sync.RWMutex
	introspectorRegistry = make(map[string]IntrospectorFactory)
)

// RegisterIntrospectorFactory registers the introspector factory for a dialect.
// Drivers call this from init().
func RegisterIntrospectorFactory(dialect string, factory IntrospectorFactory) {
	introspectorMu.Lock()
	defer introspectorMu.Unlock()
	introspectorRegistry[dialect] = factory
}

// introspector returns the Introspector for the DB's dialect.
func (db *DB) introspector() (schema.Introspector, error) {
	introspectorMu.RLock()
	factory, ok := introspectorRegistry[db.adapter.DialectName()]
	introspectorMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("dtable: no introspector registered for dialect %q", db.adapter.DialectName())
	}
	return factory(db.adapter), nil
}

// Resolve introspects tableName in the configured schema namespace and returns
// a fresh TableHandle. Fails with ErrTableNotFound if the table does not exist.
func (db *DB) Resolve(ctx context.Context, tableName string) (*TableHandle, error) {
	info, err := db.tableInfo(ctx, tableName)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, fmt.Errorf("%w: %s (schema %q)", ErrTableNotFound, tableName, db.schema)
	}
	return newTableHandle(info), nil
}

// Exists reports whether tableName exists in the configured schema namespace.
// It never returns an error; any introspection failure reads as "not there".
func (db *DB) Exists(ctx context.Context, tableName string) bool {
	info, err := db.tableInfo(ctx, tableName)
	if err != nil {
		log.Printf("dtable: Exists probe for %s failed: %v", tableName, err)
		return false
	}
	return info != nil
}

// Columns returns the ordered column names of tableName, derived from Resolve.
func (db *DB) Columns(ctx context.Context, tableName string) ([]string, error) {
	handle, err := db.Resolve(ctx, tableName)
	if err != nil {
		return nil, err
	}
	return handle.Columns, nil
}

// Tables lists all base tables in the configured schema namespace.
func (db *DB) Tables(ctx context.Context) ([]string, error) {
	intro, err := db.introspector()
	if err != nil {
		return nil, err
	}
	return intro.ListTables(ctx, db.schema)
}

// Views lists all views in the configured schema namespace.
func (db *DB) Views(ctx context.Context) ([]string, error) {
	intro, err := db.introspector()
	if err != nil {
		return nil, err
	}
	return intro.ListViews(ctx, db.schema)
}

// tableInfo reads catalog info for a table, consulting the optional schema
// cache first. Without a cache the live catalog is authoritative on every call.
func (db *DB) tableInfo(ctx context.Context, tableName string) (*schema.TableInfo, error) {
	key := db.schemaCacheKey(tableName)
	if db.schemaCache != nil {
		if info, err := db.schemaCache.GetTable(ctx, key); err == nil && info != nil {
			return info, nil
		} else if err != nil {
			log.Printf("dtable: schema cache get for %s failed: %v", key, err)
		}
	}

	intro, err := db.introspector()
	if err != nil {
		return nil, err
	}
	info, err := intro.GetTableInfo(ctx, db.schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("dtable: introspect %s: %w", tableName, err)
	}

	if db.schemaCache != nil && info != nil {
		if err := db.schemaCache.SetTable(ctx, key, info, db.schemaCacheTTL); err != nil {
			log.Printf("dtable: schema cache set for %s failed: %v", key, err)
		}
	}
	return info, nil
}

// invalidateSchemaCache drops the cached entry for a table after DDL.
func (db *DB) invalidateSchemaCache(ctx context.Context, tableName string) {
	if db.schemaCache == nil {
		return
	}
	if err := db.schemaCache.Invalidate(ctx, db.schemaCacheKey(tableName)); err != nil {
		log.Printf("dtable: schema cache invalidate for %s failed: %v", tableName, err)
	}
}

func (db *DB) schemaCacheKey(tableName string) string {
	return fmt.Sprintf("dtable:schema:%s:%s", db.schema, tableName)
}

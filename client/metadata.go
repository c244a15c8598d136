package client

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow/flight"

	"github.com/flightsql/engine/command"
	"github.com/flightsql/engine/server"
)

// getFlightInfo packs v and issues DescribeFlight against it, the shape
// shared by every metadata call in spec.md §4.5.
func (c *Client) getFlightInfo(ctx context.Context, v command.Variant) (*flight.FlightInfo, error) {
	body, err := command.Pack(v)
	if err != nil {
		return nil, err
	}
	info, err := c.svc.GetFlightInfo(ctx, &flight.FlightDescriptor{Type: flight.DescriptorCMD, Cmd: body})
	return info, server.FromStatus(err)
}

// GetCatalogs requests the list of catalogs.
func (c *Client) GetCatalogs(ctx context.Context) (*flight.FlightInfo, error) {
	return c.getFlightInfo(ctx, command.CommandGetCatalogs{})
}

// GetSchemas requests schemas, optionally narrowed by catalog and/or a
// schema name pattern.
func (c *Client) GetSchemas(ctx context.Context, catalog, schemaPattern *string) (*flight.FlightInfo, error) {
	return c.getFlightInfo(ctx, command.CommandGetSchemas{Catalog: catalog, SchemaFilterPattern: schemaPattern})
}

// GetTables requests tables, optionally narrowed by catalog, schema
// pattern, table-name pattern, and/or table types; includeSchema requests
// each table's serialized schema in the result.
func (c *Client) GetTables(ctx context.Context, catalog, schemaPattern, tablePattern *string, tableTypes []string, includeSchema bool) (*flight.FlightInfo, error) {
	return c.getFlightInfo(ctx, command.CommandGetTables{
		Catalog:                catalog,
		SchemaFilterPattern:    schemaPattern,
		TableNameFilterPattern: tablePattern,
		TableTypes:             tableTypes,
		IncludeSchema:          includeSchema,
	})
}

// GetTableTypes requests the list of supported table type names.
func (c *Client) GetTableTypes(ctx context.Context) (*flight.FlightInfo, error) {
	return c.getFlightInfo(ctx, command.CommandGetTableTypes{})
}

// GetPrimaryKeys requests the primary key columns of a table.
func (c *Client) GetPrimaryKeys(ctx context.Context, ref command.TableRef) (*flight.FlightInfo, error) {
	return c.getFlightInfo(ctx, command.CommandGetPrimaryKeys{TableRef: ref})
}

// GetImportedKeys requests the foreign keys a table references.
func (c *Client) GetImportedKeys(ctx context.Context, ref command.TableRef) (*flight.FlightInfo, error) {
	return c.getFlightInfo(ctx, command.CommandGetImportedKeys{TableRef: ref})
}

// GetExportedKeys requests the foreign keys that reference a table.
func (c *Client) GetExportedKeys(ctx context.Context, ref command.TableRef) (*flight.FlightInfo, error) {
	return c.getFlightInfo(ctx, command.CommandGetExportedKeys{TableRef: ref})
}

// GetCrossReference requests the foreign keys in fk that reference pk.
func (c *Client) GetCrossReference(ctx context.Context, pk, fk command.TableRef) (*flight.FlightInfo, error) {
	return c.getFlightInfo(ctx, command.CommandGetCrossReference{CrossTableRef: command.CrossTableRef{
		PKCatalog: pk.Catalog, PKSchema: pk.Schema, PKTable: pk.Table,
		FKCatalog: fk.Catalog, FKSchema: fk.Schema, FKTable: fk.Table,
	}})
}

// GetSqlInfo requests server capability/engine-attribute info, or all
// known info when codes is empty.
func (c *Client) GetSqlInfo(ctx context.Context, codes []int32) (*flight.FlightInfo, error) {
	return c.getFlightInfo(ctx, command.CommandGetSqlInfo{Info: codes})
}

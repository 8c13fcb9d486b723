// Package mssql implements the customer data provider contract against a
// SQL Server customers table. The row handling mirrors the postgres adapter;
// only the placeholder syntax and identifier quoting differ.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	mssqldb "github.com/microsoft/go-mssqldb"
	"go.uber.org/zap"

	"github.com/kindredhq/kindred-engine/pkg/apperrors"
	"github.com/kindredhq/kindred-engine/pkg/fieldmap"
	"github.com/kindredhq/kindred-engine/pkg/logging"
	"github.com/kindredhq/kindred-engine/pkg/models"
	"github.com/kindredhq/kindred-engine/pkg/providers"
)

// Adapter is a SQL Server-backed customer data provider. The connection is
// created on first use, matching the postgres adapter.
type Adapter struct {
	name    string
	cfg     *Config
	mapping fieldmap.Mapping
	logger  *zap.Logger

	mu sync.Mutex
	db *sql.DB
}

// NewAdapter creates a SQL Server adapter for one configured integration.
func NewAdapter(name string, cfg *Config, mapping fieldmap.Mapping, logger *zap.Logger) *Adapter {
	return &Adapter{
		name:    name,
		cfg:     cfg,
		mapping: mapping,
		logger:  logger,
	}
}

func (a *Adapter) Name() string { return a.name }
func (a *Adapter) Type() string { return models.ProviderTypeMSSQL }

func (a *Adapter) getDB() (*sql.DB, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.db != nil {
		return a.db, nil
	}

	connector, err := mssqldb.NewConnector(a.cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse sqlserver url: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(time.Hour)

	a.logger.Info("sqlserver connection opened",
		zap.String("provider", a.name),
		zap.String("url", logging.SanitizeConnectionString(a.cfg.DatabaseURL)))

	a.db = db
	return db, nil
}

// quoteIdent quotes a SQL Server identifier with brackets.
func quoteIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// rowsToMaps reads all remaining rows into generic column maps.
func rowsToMaps(rows *sql.Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	out := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, column := range columns {
			value := values[i]
			if b, ok := value.([]byte); ok {
				value = string(b)
			}
			rowMap[column] = value
		}
		out = append(out, rowMap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

func (a *Adapter) recordFromRow(row map[string]any) *models.CustomerRecord {
	return models.NewFromProviderData(row, a.name, a.mapping)
}

func (a *Adapter) getByColumn(ctx context.Context, op, column, value string) (*models.CustomerRecord, error) {
	db, err := a.getDB()
	if err != nil {
		return nil, providers.NewConnectionError(a.name, op, err)
	}

	query := fmt.Sprintf("SELECT TOP 1 * FROM %s WHERE %s = @p1",
		quoteIdent(a.cfg.TableName), quoteIdent(column))
	rows, err := db.QueryContext(ctx, query, value)
	if err != nil {
		return nil, providers.NewConnectionError(a.name, op, err)
	}
	defer rows.Close()

	maps, err := rowsToMaps(rows)
	if err != nil {
		return nil, providers.NewConnectionError(a.name, op, err)
	}
	if len(maps) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return a.recordFromRow(maps[0]), nil
}

func (a *Adapter) GetByID(ctx context.Context, id string) (*models.CustomerRecord, error) {
	return a.getByColumn(ctx, "get customer", "id", id)
}

func (a *Adapter) GetByEmail(ctx context.Context, email string) (*models.CustomerRecord, error) {
	return a.getByColumn(ctx, "get customer by email", "email", email)
}

func (a *Adapter) GetByPhone(ctx context.Context, phone string) (*models.CustomerRecord, error) {
	return a.getByColumn(ctx, "get customer by phone", "phone", phone)
}

func (a *Adapter) Create(ctx context.Context, data map[string]any) (*models.CustomerRecord, error) {
	db, err := a.getDB()
	if err != nil {
		return nil, providers.NewConnectionError(a.name, "create customer", err)
	}

	lastName := fieldmap.Stringify(data["last_name"])
	if lastName == "" {
		lastName = fieldmap.Stringify(data["name"])
	}
	if lastName == "" {
		lastName = "Unknown"
	}

	columns := []string{"first_name", "last_name", "email", "phone", "created_at"}
	values := []any{
		fieldmap.Stringify(data["first_name"]),
		lastName,
		fieldmap.Stringify(data["email"]),
		fieldmap.Stringify(data["phone"]),
		time.Now(),
	}

	if custom, ok := data["custom_fields"].(map[string]any); ok {
		keys := make([]string, 0, len(custom))
		for key := range custom {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			columns = append(columns, key)
			values = append(values, custom[key])
		}
	}

	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, column := range columns {
		quoted[i] = quoteIdent(column)
		placeholders[i] = fmt.Sprintf("@p%d", i+1)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) OUTPUT INSERTED.id VALUES (%s)",
		quoteIdent(a.cfg.TableName),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "))

	var id any
	if err := db.QueryRowContext(ctx, query, values...).Scan(&id); err != nil {
		return nil, providers.NewConnectionError(a.name, "create customer", err)
	}

	return a.GetByID(ctx, fieldmap.Stringify(id))
}

func (a *Adapter) Update(ctx context.Context, record *models.CustomerRecord) error {
	db, err := a.getDB()
	if err != nil {
		return providers.NewConnectionError(a.name, "update customer", err)
	}

	id := record.ExternalIDs[a.name]
	if id == "" {
		id = record.CustomerID
	}

	query := fmt.Sprintf(
		"UPDATE %s SET first_name = @p1, last_name = @p2, email = @p3, phone = @p4, updated_at = @p5 WHERE id = @p6",
		quoteIdent(a.cfg.TableName))

	result, err := db.ExecContext(ctx, query,
		record.FirstName, record.LastName, record.Email, record.Phone, time.Now(), id)
	if err != nil {
		return providers.NewConnectionError(a.name, "update customer", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (a *Adapter) History(ctx context.Context, customerID string) ([]models.Interaction, error) {
	db, err := a.getDB()
	if err != nil {
		return nil, providers.NewConnectionError(a.name, "list interactions", err)
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE customer_id = @p1 ORDER BY created_at DESC",
		quoteIdent(a.cfg.InteractionsTable))
	rows, err := db.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, providers.NewConnectionError(a.name, "list interactions", err)
	}
	defer rows.Close()

	maps, err := rowsToMaps(rows)
	if err != nil {
		return nil, providers.NewConnectionError(a.name, "list interactions", err)
	}

	history := make([]models.Interaction, 0, len(maps))
	for _, row := range maps {
		interactionType := fieldmap.Stringify(row["interaction_type"])
		if interactionType == "" {
			interactionType = "interaction"
		}
		history = append(history, models.Interaction{
			ID:          fieldmap.Stringify(row["id"]),
			Type:        interactionType,
			Subject:     fieldmap.Stringify(row["subject"]),
			Content:     fieldmap.Stringify(row["content"]),
			Status:      fieldmap.Stringify(row["status"]),
			CreatedDate: fieldmap.Stringify(row["created_at"]),
			Source:      a.name,
		})
	}
	return history, nil
}

func (a *Adapter) Search(ctx context.Context, query string, limit int) ([]*models.CustomerRecord, error) {
	db, err := a.getDB()
	if err != nil {
		return nil, providers.NewConnectionError(a.name, "search customers", err)
	}

	stmt := fmt.Sprintf(
		"SELECT TOP (@p2) * FROM %s WHERE first_name LIKE @p1 OR last_name LIKE @p1 OR email LIKE @p1",
		quoteIdent(a.cfg.TableName))
	rows, err := db.QueryContext(ctx, stmt, "%"+query+"%", limit)
	if err != nil {
		return nil, providers.NewConnectionError(a.name, "search customers", err)
	}
	defer rows.Close()

	maps, err := rowsToMaps(rows)
	if err != nil {
		return nil, providers.NewConnectionError(a.name, "search customers", err)
	}

	records := make([]*models.CustomerRecord, 0, len(maps))
	for _, row := range maps {
		records = append(records, a.recordFromRow(row))
	}
	return records, nil
}

func (a *Adapter) TestConnection(ctx context.Context) providers.ConnectionStatus {
	db, err := a.getDB()
	if err == nil {
		err = db.PingContext(ctx)
	}
	if err == nil {
		var one int
		err = db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
	}
	if err != nil {
		return providers.ConnectionStatus{
			Provider: a.name,
			Status:   providers.StatusError,
			Error:    logging.SanitizeError(err),
		}
	}
	return providers.ConnectionStatus{
		Provider: a.name,
		Status:   providers.StatusSuccess,
		Message:  "Connection successful",
	}
}

func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.db != nil {
		err := a.db.Close()
		a.db = nil
		return err
	}
	return nil
}

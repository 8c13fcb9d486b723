// Package postgres implements the customer data provider contract against a
// PostgreSQL customers table. Rows are read generically so integrations can
// point the adapter at any table shape and reconcile columns through field
// mappings.
package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/kindredhq/kindred-engine/pkg/apperrors"
	"github.com/kindredhq/kindred-engine/pkg/fieldmap"
	"github.com/kindredhq/kindred-engine/pkg/logging"
	"github.com/kindredhq/kindred-engine/pkg/models"
	"github.com/kindredhq/kindred-engine/pkg/providers"
)

// Adapter is a PostgreSQL-backed customer data provider. The pool is created
// on first use so that a misconfigured integration surfaces as a connection
// error on its first operation rather than failing startup for everyone.
type Adapter struct {
	name    string
	cfg     *Config
	mapping fieldmap.Mapping
	logger  *zap.Logger

	mu   sync.Mutex
	pool *pgxpool.Pool
}

// NewAdapter creates a PostgreSQL adapter for one configured integration.
func NewAdapter(name string, cfg *Config, mapping fieldmap.Mapping, logger *zap.Logger) *Adapter {
	return &Adapter{
		name:    name,
		cfg:     cfg,
		mapping: mapping,
		logger:  logger,
	}
}

func (a *Adapter) Name() string { return a.name }
func (a *Adapter) Type() string { return models.ProviderTypePostgreSQL }

func (a *Adapter) getPool(ctx context.Context) (*pgxpool.Pool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.pool != nil {
		return a.pool, nil
	}

	if a.cfg.ManageSchema {
		if err := runMigrations(a.cfg.DatabaseURL, a.logger); err != nil {
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	pool, err := pgxpool.New(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.logger.Info("postgres pool created",
		zap.String("provider", a.name),
		zap.String("url", logging.SanitizeConnectionString(a.cfg.DatabaseURL)))

	a.pool = pool
	return pool, nil
}

func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// rowsToMaps reads all remaining rows into generic column maps.
func rowsToMaps(rows pgx.Rows) ([]map[string]any, error) {
	fieldDescs := rows.FieldDescriptions()
	out := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row values: %w", err)
		}
		rowMap := make(map[string]any, len(fieldDescs))
		for i, fd := range fieldDescs {
			rowMap[string(fd.Name)] = values[i]
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
	pool, err := a.getPool(ctx)
	if err != nil {
		return nil, providers.NewConnectionError(a.name, op, err)
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = $1 LIMIT 1",
		quoteIdent(a.cfg.TableName), quoteIdent(column))
	rows, err := pool.Query(ctx, query, value)
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
	pool, err := a.getPool(ctx)
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

	// Custom fields map onto columns of the same name. Sorted for a stable
	// statement shape.
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
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		quoteIdent(a.cfg.TableName),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "))

	var id any
	if err := pool.QueryRow(ctx, query, values...).Scan(&id); err != nil {
		return nil, providers.NewConnectionError(a.name, "create customer", err)
	}

	return a.GetByID(ctx, fieldmap.Stringify(id))
}

func (a *Adapter) Update(ctx context.Context, record *models.CustomerRecord) error {
	pool, err := a.getPool(ctx)
	if err != nil {
		return providers.NewConnectionError(a.name, "update customer", err)
	}

	id := record.ExternalIDs[a.name]
	if id == "" {
		id = record.CustomerID
	}

	query := fmt.Sprintf(
		"UPDATE %s SET first_name = $1, last_name = $2, email = $3, phone = $4, updated_at = $5 WHERE id = $6",
		quoteIdent(a.cfg.TableName))

	tag, err := pool.Exec(ctx, query,
		record.FirstName, record.LastName, record.Email, record.Phone, time.Now(), id)
	if err != nil {
		return providers.NewConnectionError(a.name, "update customer", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (a *Adapter) History(ctx context.Context, customerID string) ([]models.Interaction, error) {
	pool, err := a.getPool(ctx)
	if err != nil {
		return nil, providers.NewConnectionError(a.name, "list interactions", err)
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE customer_id = $1 ORDER BY created_at DESC",
		quoteIdent(a.cfg.InteractionsTable))
	rows, err := pool.Query(ctx, query, customerID)
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
	pool, err := a.getPool(ctx)
	if err != nil {
		return nil, providers.NewConnectionError(a.name, "search customers", err)
	}

	stmt := fmt.Sprintf(
		"SELECT * FROM %s WHERE first_name ILIKE $1 OR last_name ILIKE $1 OR email ILIKE $1 LIMIT $2",
		quoteIdent(a.cfg.TableName))
	rows, err := pool.Query(ctx, stmt, "%"+query+"%", limit)
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
	pool, err := a.getPool(ctx)
	if err == nil {
		var one int
		err = pool.QueryRow(ctx, "SELECT 1").Scan(&one)
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
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	return nil
}

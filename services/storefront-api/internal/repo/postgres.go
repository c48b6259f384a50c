package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront-api/shared/pkg/models"
)

// PostgresCollection stores documents as jsonb rows. The identifier lives
// in its own column and is merged back into the document as _id on read.
type PostgresCollection struct {
	DB    *pgxpool.Pool
	table string
}

func OpenPostgres(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pg connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg ping: %w", err)
	}
	s, err := NewPostgresStore(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore creates the collection tables if needed.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	colls := map[string]*PostgresCollection{}
	for _, name := range []string{CollectionProducts, CollectionOrders, CollectionReviews, CollectionUsers} {
		c := &PostgresCollection{DB: pool, table: pgx.Identifier{name}.Sanitize()}
		if err := c.ensureTable(ctx); err != nil {
			return nil, fmt.Errorf("create %s table: %w", name, err)
		}
		colls[name] = c
	}
	return &Store{
		Products: colls[CollectionProducts],
		Orders:   colls[CollectionOrders],
		Reviews:  colls[CollectionReviews],
		Users:    colls[CollectionUsers],
		ping:     pool.Ping,
		close: func(context.Context) error {
			pool.Close()
			return nil
		},
	}, nil
}

func (p *PostgresCollection) ensureTable(ctx context.Context) error {
	_, err := p.DB.Exec(ctx, `
		create table if not exists `+p.table+` (
			seq        bigserial,
			id         text primary key,
			doc        jsonb not null,
			created_at timestamptz not null default now()
		)
	`)
	return err
}

func (p *PostgresCollection) InsertOne(ctx context.Context, doc models.Document) (InsertResult, error) {
	d := clone(doc)
	var id any = primitive.NewObjectID()
	if v, ok := d[models.FieldID]; ok {
		id = v
		delete(d, models.FieldID)
	}

	key, err := idKey(id)
	if err != nil {
		return InsertResult{}, err
	}
	body, err := json.Marshal(d)
	if err != nil {
		return InsertResult{}, err
	}

	_, err = p.DB.Exec(ctx, `insert into `+p.table+` (id, doc) values ($1, $2::jsonb)`, key, string(body))
	if err != nil {
		return InsertResult{}, err
	}
	return InsertResult{Acknowledged: true, InsertedID: id}, nil
}

func (p *PostgresCollection) Find(ctx context.Context, f Filter) ([]models.Document, error) {
	where, args, err := whereClause(f, 1)
	if err != nil {
		return nil, err
	}
	rows, err := p.DB.Query(ctx, `select id, doc from `+p.table+where+` order by seq`, args...)
	if err != nil {
		return nil, err
	}
	docs, err := pgx.CollectRows(rows, scanDocument)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []models.Document{}
	}
	return docs, nil
}

func (p *PostgresCollection) FindOne(ctx context.Context, f Filter) (models.Document, error) {
	where, args, err := whereClause(f, 1)
	if err != nil {
		return nil, err
	}
	rows, err := p.DB.Query(ctx, `select id, doc from `+p.table+where+` order by seq limit 1`, args...)
	if err != nil {
		return nil, err
	}
	doc, err := pgx.CollectOneRow(rows, scanDocument)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (p *PostgresCollection) UpdateOne(ctx context.Context, f Filter, set models.Document, upsert bool) (UpdateResult, error) {
	patch := clone(set)
	delete(patch, models.FieldID)
	body, err := json.Marshal(patch)
	if err != nil {
		return UpdateResult{}, err
	}

	where, args, err := whereClause(f, 2)
	if err != nil {
		return UpdateResult{}, err
	}

	// modified is zero when the patch is already contained in the document.
	q := `
		with target as (
			select id, doc @> $1::jsonb as unchanged
			from ` + p.table + where + `
			order by seq
			limit 1
		), updated as (
			update ` + p.table + ` as c
			set doc = c.doc || $1::jsonb
			from target
			where c.id = target.id and not target.unchanged
			returning c.id
		)
		select (select count(*) from target), (select count(*) from updated)
	`
	res := UpdateResult{Acknowledged: true}
	err = p.DB.QueryRow(ctx, q, append([]any{string(body)}, args...)...).Scan(&res.MatchedCount, &res.ModifiedCount)
	if err != nil {
		return UpdateResult{}, err
	}
	if res.MatchedCount > 0 || !upsert {
		return res, nil
	}

	d := patch
	var id any = primitive.NewObjectID()
	switch f.Field {
	case "":
	case models.FieldID:
		id = f.Value
	default:
		d[f.Field] = f.Value
	}
	d[models.FieldID] = id
	ins, err := p.InsertOne(ctx, d)
	if err != nil {
		return UpdateResult{}, err
	}
	res.UpsertedCount = 1
	res.UpsertedID = ins.InsertedID
	return res, nil
}

func (p *PostgresCollection) DeleteOne(ctx context.Context, f Filter) (DeleteResult, error) {
	where, args, err := whereClause(f, 1)
	if err != nil {
		return DeleteResult{}, err
	}
	ct, err := p.DB.Exec(ctx, `
		delete from `+p.table+`
		where id = (select id from `+p.table+where+` order by seq limit 1)
	`, args...)
	if err != nil {
		return DeleteResult{}, err
	}
	return DeleteResult{Acknowledged: true, DeletedCount: ct.RowsAffected()}, nil
}

// whereClause renders f with placeholders numbered from next. Field
// matches compare jsonb values so that types must agree, as in Mongo.
func whereClause(f Filter, next int) (string, []any, error) {
	switch f.Field {
	case "":
		return "", nil, nil
	case models.FieldID:
		key, err := idKey(f.Value)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf(" where id = $%d", next), []any{key}, nil
	default:
		v, err := json.Marshal(f.Value)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf(" where doc -> $%d::text = $%d::jsonb", next, next+1), []any{f.Field, string(v)}, nil
	}
}

func scanDocument(row pgx.CollectableRow) (models.Document, error) {
	var (
		id  string
		doc map[string]any
	)
	if err := row.Scan(&id, &doc); err != nil {
		return nil, err
	}
	d := models.Document(doc)
	if d == nil {
		d = models.Document{}
	}
	v, err := idValue(id)
	if err != nil {
		return nil, err
	}
	d[models.FieldID] = v
	return d, nil
}

// The id column carries a type tag so that client supplied identifiers
// come back with the BSON type they were stored with.
const (
	idTagObjectID = "o:"
	idTagString   = "s:"
	idTagExtJSON  = "x:"
)

func idKey(v any) (string, error) {
	switch id := v.(type) {
	case primitive.ObjectID:
		return idTagObjectID + id.Hex(), nil
	case string:
		return idTagString + id, nil
	}
	raw, err := bson.MarshalExtJSON(bson.M{"v": v}, true, false)
	if err != nil {
		return "", fmt.Errorf("%w: unsupported _id %T", ErrInvalidID, v)
	}
	return idTagExtJSON + string(raw), nil
}

func idValue(key string) (any, error) {
	switch {
	case strings.HasPrefix(key, idTagObjectID):
		id, err := primitive.ObjectIDFromHex(strings.TrimPrefix(key, idTagObjectID))
		if err != nil {
			return nil, fmt.Errorf("stored id %q: %w", key, err)
		}
		return id, nil
	case strings.HasPrefix(key, idTagString):
		return strings.TrimPrefix(key, idTagString), nil
	case strings.HasPrefix(key, idTagExtJSON):
		var wrapped bson.M
		if err := bson.UnmarshalExtJSON([]byte(strings.TrimPrefix(key, idTagExtJSON)), true, &wrapped); err != nil {
			return nil, fmt.Errorf("stored id %q: %w", key, err)
		}
		return wrapped["v"], nil
	default:
		return nil, fmt.Errorf("stored id %q has no type tag", key)
	}
}

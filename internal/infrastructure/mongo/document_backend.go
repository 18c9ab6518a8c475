// Package mongo implementa el backend de documentos sobre MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/jhoicas/customers-api/internal/infrastructure/docstore"
)

const (
	sequencesCollection = "@sequences"
	defaultConnTimeout  = 10 * time.Second
)

var _ docstore.Backend = (*Backend)(nil)

// Backend guarda cada colección de documentos en una colección de MongoDB con
// _id igual al id del documento. Las secuencias viven en "@sequences".
type Backend struct {
	client *mongodriver.Client
	db     database
}

// Dial conecta a MongoDB con las URLs configuradas y selecciona la base de datos.
// Con varias URLs, la primera aporta las opciones y todas aportan hosts.
func Dial(ctx context.Context, cfg docstore.Config) (docstore.Backend, error) {
	opts, err := clientOptions(cfg.URLs)
	if err != nil {
		return nil, err
	}
	if cfg.Database == "" {
		return nil, errors.New("mongo: nombre de base de datos requerido")
	}
	connectCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()

	client, err := mongodriver.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return newBackend(client, mongoDatabase{db: client.Database(cfg.Database)}), nil
}

func newBackend(client *mongodriver.Client, db database) *Backend {
	return &Backend{client: client, db: db}
}

func clientOptions(urls []string) (*options.ClientOptions, error) {
	if len(urls) == 0 {
		return nil, errors.New("mongo: se requiere al menos una URL")
	}
	opts := options.Client().ApplyURI(urls[0])
	if len(urls) > 1 {
		var hosts []string
		for _, raw := range urls {
			u, err := url.Parse(strings.TrimSpace(raw))
			if err != nil {
				return nil, fmt.Errorf("mongo: url inválida %q: %w", raw, err)
			}
			for _, h := range strings.Split(u.Host, ",") {
				if h != "" {
					hosts = append(hosts, h)
				}
			}
		}
		opts.SetHosts(hosts)
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("mongo: opciones inválidas: %w", err)
	}
	return opts, nil
}

func (b *Backend) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	var raw bson.D
	err := b.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	data, err := fromBSON(raw)
	if err != nil {
		return nil, fmt.Errorf("documento %s: %w", id, err)
	}
	return &docstore.Document{ID: id, Collection: collection, Data: data}, nil
}

func (b *Backend) List(ctx context.Context, collection string) ([]docstore.Document, error) {
	cur, err := b.db.Collection(collection).Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cur.Close(ctx)
	}()
	var out []docstore.Document
	for cur.Next(ctx) {
		var raw bson.D
		if err := cur.Decode(&raw); err != nil {
			return nil, err
		}
		id, ok := documentID(raw)
		if !ok {
			continue
		}
		data, err := fromBSON(raw)
		if err != nil {
			return nil, fmt.Errorf("documento %s: %w", id, err)
		}
		out = append(out, docstore.Document{ID: id, Collection: collection, Data: data})
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Backend) NextSequence(ctx context.Context, collection string) (int64, error) {
	var seq struct {
		Value int64 `bson:"value"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := b.db.Collection(sequencesCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": collection},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		opts,
	).Decode(&seq)
	if err != nil {
		return 0, fmt.Errorf("secuencia %s: %w", collection, err)
	}
	return seq.Value, nil
}

// Commit agrupa los comandos por colección y los envía con BulkWrite ordenado.
func (b *Backend) Commit(ctx context.Context, cmds []docstore.Command) error {
	var order []string
	models := make(map[string][]mongodriver.WriteModel)
	for _, cmd := range cmds {
		doc := cmd.Document
		var model mongodriver.WriteModel
		switch cmd.Kind {
		case docstore.CommandPut:
			body, err := toBSON(doc.ID, doc.Data)
			if err != nil {
				return fmt.Errorf("documento %s: %w", doc.ID, err)
			}
			model = mongodriver.NewReplaceOneModel().
				SetFilter(bson.M{"_id": doc.ID}).
				SetReplacement(body).
				SetUpsert(true)
		case docstore.CommandDelete:
			model = mongodriver.NewDeleteOneModel().SetFilter(bson.M{"_id": doc.ID})
		default:
			return fmt.Errorf("comando desconocido %s", cmd.Kind)
		}
		if _, ok := models[doc.Collection]; !ok {
			order = append(order, doc.Collection)
		}
		models[doc.Collection] = append(models[doc.Collection], model)
	}
	for _, name := range order {
		if _, err := b.db.Collection(name).BulkWrite(ctx, models[name], options.BulkWrite().SetOrdered(true)); err != nil {
			return fmt.Errorf("bulk write %s: %w", name, err)
		}
	}
	return nil
}

func (b *Backend) Ping(ctx context.Context) error {
	if b.client == nil {
		return nil
	}
	return b.client.Ping(ctx, readpref.Primary())
}

func (b *Backend) Close(ctx context.Context) error {
	if b.client == nil {
		return nil
	}
	return b.client.Disconnect(ctx)
}

// toBSON convierte el JSON del documento a bson.D con _id al inicio.
func toBSON(id string, data []byte) (bson.D, error) {
	var body bson.D
	if err := bson.UnmarshalExtJSON(data, false, &body); err != nil {
		return nil, err
	}
	out := make(bson.D, 0, len(body)+1)
	out = append(out, bson.E{Key: "_id", Value: id})
	for _, e := range body {
		if e.Key == "_id" {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// fromBSON quita _id y devuelve el documento como JSON relajado.
func fromBSON(raw bson.D) ([]byte, error) {
	body := make(bson.D, 0, len(raw))
	for _, e := range raw {
		if e.Key == "_id" {
			continue
		}
		body = append(body, e)
	}
	return bson.MarshalExtJSON(body, false, false)
}

func documentID(raw bson.D) (string, bool) {
	for _, e := range raw {
		if e.Key == "_id" {
			id, ok := e.Value.(string)
			return id, ok
		}
	}
	return "", false
}

type database interface {
	Collection(name string) collection
}

type collection interface {
	FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) singleResult
	Find(ctx context.Context, filter any, opts ...*options.FindOptions) (cursor, error)
	FindOneAndUpdate(ctx context.Context, filter any, update any,
		opts ...*options.FindOneAndUpdateOptions) singleResult
	BulkWrite(ctx context.Context, models []mongodriver.WriteModel,
		opts ...*options.BulkWriteOptions) (*mongodriver.BulkWriteResult, error)
}

type singleResult interface {
	Decode(val any) error
}

type cursor interface {
	Close(ctx context.Context) error
	Decode(val any) error
	Err() error
	Next(ctx context.Context) bool
}

type mongoDatabase struct {
	db *mongodriver.Database
}

func (d mongoDatabase) Collection(name string) collection {
	return mongoCollection{coll: d.db.Collection(name)}
}

type mongoCollection struct {
	coll *mongodriver.Collection
}

func (c mongoCollection) FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) singleResult {
	return c.coll.FindOne(ctx, filter, opts...)
}

func (c mongoCollection) Find(ctx context.Context, filter any, opts ...*options.FindOptions) (cursor, error) {
	cur, err := c.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return cur, nil
}

func (c mongoCollection) FindOneAndUpdate(ctx context.Context, filter any, update any,
	opts ...*options.FindOneAndUpdateOptions) singleResult {
	return c.coll.FindOneAndUpdate(ctx, filter, update, opts...)
}

func (c mongoCollection) BulkWrite(ctx context.Context, models []mongodriver.WriteModel,
	opts ...*options.BulkWriteOptions) (*mongodriver.BulkWriteResult, error) {
	return c.coll.BulkWrite(ctx, models, opts...)
}

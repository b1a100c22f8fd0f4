// Package mongostore implements the catalog and order repositories on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go-storefront/models"
	"go-storefront/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const queryTimeout = 5 * time.Second

// Catalog reads and writes products, packs, categories and stores.
type Catalog struct {
	Products   *mongo.Collection
	Packs      *mongo.Collection
	Categories *mongo.Collection
	Stores     *mongo.Collection
}

// NewCatalog binds the catalog collections of db.
func NewCatalog(db *mongo.Database) *Catalog {
	return &Catalog{
		Products:   db.Collection("products"),
		Packs:      db.Collection("packs"),
		Categories: db.Collection("categories"),
		Stores:     db.Collection("stores"),
	}
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", coll.Name(), err)
	}
	defer cursor.Close(ctx)

	out := []T{}
	for cursor.Next(ctx) {
		var doc T
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", coll.Name(), err)
		}
		out = append(out, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", coll.Name(), err)
	}
	return out, nil
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, id any) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var doc T
	err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return doc, storage.ErrNotFound
	}
	if err != nil {
		return doc, fmt.Errorf("find %s %v: %w", coll.Name(), id, err)
	}
	return doc, nil
}

func byID() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
}

// nextID returns one past the highest integer id in coll.
func nextID(ctx context.Context, coll *mongo.Collection) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var last struct {
		ID int `bson:"_id"`
	}
	err := coll.FindOne(ctx, bson.M{}, options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})).Decode(&last)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", coll.Name(), err)
	}
	return last.ID + 1, nil
}

func (c *Catalog) GetProducts(ctx context.Context) ([]models.Product, error) {
	return findAll[models.Product](ctx, c.Products, bson.M{}, byID())
}

func (c *Catalog) GetProduct(ctx context.Context, id int) (models.Product, error) {
	return findOne[models.Product](ctx, c.Products, id)
}

func (c *Catalog) GetPacks(ctx context.Context) ([]models.Pack, error) {
	return findAll[models.Pack](ctx, c.Packs, bson.M{}, byID())
}

func (c *Catalog) GetPack(ctx context.Context, id int) (models.Pack, error) {
	return findOne[models.Pack](ctx, c.Packs, id)
}

func (c *Catalog) GetCategories(ctx context.Context) ([]models.Category, error) {
	return findAll[models.Category](ctx, c.Categories, bson.M{}, byID())
}

func (c *Catalog) GetStores(ctx context.Context) ([]models.Store, error) {
	return findAll[models.Store](ctx, c.Stores, bson.M{}, byID())
}

// maxIDAttempts bounds how often a fresh id is allocated when concurrent
// writers race for the same one.
const maxIDAttempts = 5

// insertWithNextID allocates an id with next and inserts under it. A
// duplicate key error means another writer took the id first, so a new one
// is allocated.
func insertWithNextID(ctx context.Context, next func(context.Context) (int, error), insert func(context.Context, int) error) (int, error) {
	var err error
	for range maxIDAttempts {
		var id int
		if id, err = next(ctx); err != nil {
			return 0, err
		}
		if err = insert(ctx, id); !mongo.IsDuplicateKeyError(err) {
			return id, err
		}
	}
	return 0, fmt.Errorf("no free id after %d attempts: %w", maxIDAttempts, err)
}

func nextIDOf(coll *mongo.Collection) func(context.Context) (int, error) {
	return func(ctx context.Context) (int, error) { return nextID(ctx, coll) }
}

func insertOne(coll *mongo.Collection, doc func(id int) any) func(context.Context, int) error {
	return func(ctx context.Context, id int) error {
		ctx, cancel := context.WithTimeout(ctx, queryTimeout)
		defer cancel()
		_, err := coll.InsertOne(ctx, doc(id))
		return err
	}
}

// CreateProduct inserts p, allocating an id when p.ID is zero.
func (c *Catalog) CreateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	if p.ID == 0 {
		id, err := insertWithNextID(ctx, nextIDOf(c.Products), insertOne(c.Products, func(id int) any {
			p.ID = id
			return p
		}))
		if err != nil {
			return models.Product{}, fmt.Errorf("insert product: %w", err)
		}
		p.ID = id
		return p, nil
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	if _, err := c.Products.InsertOne(ctx, p); err != nil {
		return models.Product{}, fmt.Errorf("insert product: %w", err)
	}
	return p, nil
}

// UpdateProduct replaces the stored product with the same id.
func (c *Catalog) UpdateProduct(ctx context.Context, p models.Product) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := c.Products.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		return fmt.Errorf("update product %d: %w", p.ID, err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (c *Catalog) DeleteProduct(ctx context.Context, id int) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := c.Products.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SavePack inserts p under a new id when p.ID is zero and upserts it
// otherwise.
func (c *Catalog) SavePack(ctx context.Context, p models.Pack) (models.Pack, error) {
	if p.ID == 0 {
		id, err := insertWithNextID(ctx, nextIDOf(c.Packs), insertOne(c.Packs, func(id int) any {
			p.ID = id
			return p
		}))
		if err != nil {
			return models.Pack{}, fmt.Errorf("insert pack: %w", err)
		}
		p.ID = id
		return p, nil
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := c.Packs.ReplaceOne(ctx, bson.M{"_id": p.ID}, p, options.Replace().SetUpsert(true))
	if err != nil {
		return models.Pack{}, fmt.Errorf("save pack %d: %w", p.ID, err)
	}
	return p, nil
}

func (c *Catalog) DeletePack(ctx context.Context, id int) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := c.Packs.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete pack %d: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ReserveStock decrements stock for every product in units. Each decrement
// only matches when enough stock is left; on the first miss the decrements
// already applied are rolled back and ErrInsufficientStock is returned.
func (c *Catalog) ReserveStock(ctx context.Context, units map[int]int) error {
	ids := sortedIDs(units)
	reserved := make(map[int]int, len(ids))
	for _, id := range ids {
		n := units[id]
		ok, err := c.adjustStock(ctx, id, -n)
		if err == nil && !ok {
			err = fmt.Errorf("product %d: %w", id, storage.ErrInsufficientStock)
		}
		if err != nil {
			if rerr := c.ReleaseStock(ctx, reserved); rerr != nil {
				return errors.Join(err, rerr)
			}
			return err
		}
		reserved[id] = n
	}
	return nil
}

// ReleaseStock gives back previously reserved units.
func (c *Catalog) ReleaseStock(ctx context.Context, units map[int]int) error {
	var errs []error
	for _, id := range sortedIDs(units) {
		if _, err := c.adjustStock(ctx, id, units[id]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Catalog) adjustStock(ctx context.Context, id, delta int) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{"_id": id}
	if delta < 0 {
		filter["quantity"] = bson.M{"$gte": -delta}
	}
	res, err := c.Products.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"quantity": delta}})
	if err != nil {
		return false, fmt.Errorf("update stock of product %d: %w", id, err)
	}
	return res.MatchedCount > 0, nil
}

func sortedIDs(units map[int]int) []int {
	ids := make([]int, 0, len(units))
	for id := range units {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Package qdrant adapts a qdrant server to the memory.Index interface
// over its gRPC API. Unlike the embedded chromem backend it supports
// server-side score thresholds and datetime range filters, so nothing is
// post-filtered here.
package qdrant

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/memoirplus/memoir-go/memory"
)

// DefaultPort is qdrant's gRPC port.
const DefaultPort = 6334

// Config holds connection settings for a qdrant server.
type Config struct {
	Host   string
	Port   int // defaults to DefaultPort
	APIKey string
	UseTLS bool

	// GrpcOptions are passed through to the underlying dial, for
	// deployments that need custom credentials or interceptors.
	GrpcOptions []grpc.DialOption
}

// Index is a memory.Index backed by a qdrant server.
type Index struct {
	client *qdrant.Client
}

// New connects to the configured qdrant server.
func New(cfg Config) (*Index, error) {
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:        cfg.Host,
		Port:        port,
		APIKey:      cfg.APIKey,
		UseTLS:      cfg.UseTLS,
		GrpcOptions: cfg.GrpcOptions,
	})
	if err != nil {
		return nil, fmt.Errorf("connect qdrant at %s:%d: %w", cfg.Host, port, err)
	}
	return &Index{client: client}, nil
}

// HasCollection reports whether name exists on the server.
func (x *Index) HasCollection(ctx context.Context, name string) (bool, error) {
	exists, err := x.client.CollectionExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("check qdrant collection %q: %w", name, err)
	}
	return exists, nil
}

// CreateCollection creates a cosine-distance collection and indexes the
// datetime payload field so range filters stay fast as the collection
// grows.
func (x *Index) CreateCollection(ctx context.Context, name string, dims int) error {
	err := x.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dims),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create qdrant collection %q: %w", name, err)
	}
	_, err = x.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: name,
		FieldName:      "datetime",
		FieldType:      qdrant.FieldType_FieldTypeDatetime.Enum(),
	})
	if err != nil {
		return fmt.Errorf("index datetime field on %q: %w", name, err)
	}
	return nil
}

// DeleteCollection removes the collection; absence is not an error.
func (x *Index) DeleteCollection(ctx context.Context, name string) error {
	exists, err := x.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check qdrant collection %q: %w", name, err)
	}
	if !exists {
		return nil
	}
	if err := x.client.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("delete qdrant collection %q: %w", name, err)
	}
	return nil
}

// Upsert writes points, optionally waiting for the write to be
// searchable before returning.
func (x *Index) Upsert(ctx context.Context, collection string, points []memory.Point, wait bool) error {
	structs := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		payload := make(map[string]*qdrant.Value, len(p.Payload))
		for k, v := range p.Payload {
			payload[k] = qdrant.NewValueString(v)
		}
		structs = append(structs, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: payload,
		})
	}
	_, err := x.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           &wait,
		Points:         structs,
	})
	if err != nil {
		return fmt.Errorf("upsert into qdrant collection %q: %w", collection, err)
	}
	return nil
}

// Search runs a nearest-neighbor query with the threshold and filter
// applied server-side.
func (x *Index) Search(ctx context.Context, collection string, vector []float32, params memory.SearchParams) ([]memory.ScoredPoint, error) {
	query := &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if params.Limit > 0 {
		query.Limit = qdrant.PtrOf(uint64(params.Limit))
	}
	if params.ScoreThreshold > 0 {
		query.ScoreThreshold = qdrant.PtrOf(params.ScoreThreshold)
	}
	if f := params.Filter; f != nil {
		bound, err := time.Parse(memory.TimestampLayout, f.GTE)
		if err != nil {
			return nil, fmt.Errorf("parse range bound %q: %w", f.GTE, err)
		}
		query.Filter = &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewDatetimeRange(f.Key, &qdrant.DatetimeRange{
					Gte: timestamppb.New(bound),
				}),
			},
		}
	}

	results, err := x.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query qdrant collection %q: %w", collection, err)
	}

	hits := make([]memory.ScoredPoint, 0, len(results))
	for _, r := range results {
		payload := make(map[string]string, len(r.Payload))
		for k, v := range r.Payload {
			payload[k] = v.GetStringValue()
		}
		hits = append(hits, memory.ScoredPoint{Payload: payload, Score: r.Score})
	}
	return hits, nil
}

// Close tears down the gRPC connection.
func (x *Index) Close() error {
	return x.client.Close()
}

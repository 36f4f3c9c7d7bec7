package vectorstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const qdrantDialTimeout = 30 * time.Second

var qdrantWait = true

// qdrantStore backs a collection with a Qdrant server over gRPC. Chunk IDs
// are mapped to deterministic UUIDs (Qdrant only accepts UUID or integer
// point IDs); the original ID travels in the payload and is restored on read.
type qdrantStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
}

func newQdrantStore(ctx context.Context, addr, collection string) (*qdrantStore, error) {
	dialCtx, cancel := context.WithTimeout(ctx, qdrantDialTimeout)
	defer cancel()

	conn, err := grpc.DialContext(dialCtx, addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant at %s: %w", addr, err)
	}

	return &qdrantStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

func (s *qdrantStore) CollectionName() string { return s.collection }

func (s *qdrantStore) exists(ctx context.Context) (bool, error) {
	resp, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return false, fmt.Errorf("failed to list collections: %w", err)
	}
	for _, col := range resp.Collections {
		if col.Name == s.collection {
			return true, nil
		}
	}
	return false, nil
}

func (s *qdrantStore) create(ctx context.Context, vectorSize uint64) error {
	_, err := s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     vectorSize,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", s.collection, err)
	}
	return nil
}

// EnsureCollection is deliberately light for Qdrant: the vector dimension is
// only known once the first batch arrives, so creation happens in Add.
func (s *qdrantStore) EnsureCollection(ctx context.Context) error {
	_, err := s.exists(ctx)
	return err
}

func (s *qdrantStore) Add(ctx context.Context, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	ok, err := s.exists(ctx)
	if err != nil {
		return err
	}
	if !ok {
		if err := s.create(ctx, uint64(len(rows[0].Embedding))); err != nil {
			return err
		}
	}

	points := make([]*pb.PointStruct, 0, len(rows))
	for _, r := range rows {
		payload := map[string]*pb.Value{
			"chunk_id": {Kind: &pb.Value_StringValue{StringValue: r.ID}},
			"text":     {Kind: &pb.Value_StringValue{StringValue: r.Text}},
		}
		for k, v := range r.Metadata {
			payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
		}

		points = append(points, &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{
					Uuid: uuid.NewSHA1(uuid.NameSpaceOID, []byte(r.ID)).String(),
				},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: r.Embedding},
				},
			},
			Payload: payload,
		})
	}

	_, err = s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
		Wait:           &qdrantWait,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

func (s *qdrantStore) Query(ctx context.Context, embedding []float32, topK int) ([]QueryHit, error) {
	ok, err := s.exists(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCollectionNotFound
	}

	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         embedding,
		Limit:          uint64(topK),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]QueryHit, 0, len(resp.Result))
	for _, point := range resp.Result {
		hit := QueryHit{
			ID: point.Id.GetUuid(),
			// Cosine score in Qdrant is similarity; invert to match the
			// distance convention of the other backends.
			Distance: 1 - point.Score,
			Metadata: make(map[string]string),
		}
		for k, v := range point.Payload {
			switch k {
			case "chunk_id":
				hit.ID = v.GetStringValue()
			case "text":
				hit.Text = v.GetStringValue()
			default:
				hit.Metadata[k] = v.GetStringValue()
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (s *qdrantStore) Sources(ctx context.Context) (map[string]bool, error) {
	ok, err := s.exists(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCollectionNotFound
	}

	sources := make(map[string]bool)
	var offset *pb.PointId
	limit := uint32(256)

	for {
		resp, err := s.points.Scroll(ctx, &pb.ScrollPoints{
			CollectionName: s.collection,
			Limit:          &limit,
			Offset:         offset,
			WithPayload: &pb.WithPayloadSelector{
				SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("scroll failed: %w", err)
		}

		for _, point := range resp.Result {
			if v, ok := point.Payload["source"]; ok {
				if src := v.GetStringValue(); src != "" {
					sources[src] = true
				}
			}
		}

		if resp.NextPageOffset == nil {
			break
		}
		offset = resp.NextPageOffset
	}
	return sources, nil
}

func (s *qdrantStore) Count(ctx context.Context) (int64, error) {
	ok, err := s.exists(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrCollectionNotFound
	}

	exact := true
	resp, err := s.points.Count(ctx, &pb.CountPoints{
		CollectionName: s.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	return int64(resp.Result.Count), nil
}

func (s *qdrantStore) DeleteCollection(ctx context.Context) error {
	ok, err := s.exists(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCollectionNotFound
	}

	if _, err := s.collections.Delete(ctx, &pb.DeleteCollection{
		CollectionName: s.collection,
	}); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", s.collection, err)
	}
	return nil
}

func (s *qdrantStore) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

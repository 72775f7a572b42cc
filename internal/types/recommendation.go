package types

// RecommendationRequest is the body of POST /api/v1/places/recommendations.
type RecommendationRequest struct {
	Description string `json:"description"`
	Limit       int    `json:"limit,omitempty"`
}

// SimilarityResult is a single vector index match: a place id paired with
// its similarity score in [0,1], 1 meaning identical.
type SimilarityResult struct {
	PlaceID string
	Score   float64
}

// Recommendation is a resolved place joined with its similarity score.
type Recommendation struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Description     *string  `json:"description,omitempty"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	Category        string   `json:"category"`
	Rating          *float64 `json:"rating,omitempty"`
	PriceLevel      *string  `json:"price_level,omitempty"`
	PriceAverage    *float64 `json:"price_average,omitempty"`
	PriceCurrency   *string  `json:"price_currency,omitempty"`
	Address         *string  `json:"address,omitempty"`
	SimilarityScore float64  `json:"similarity_score"`
}

// RecommendationResponse echoes the original query together with the
// ranked recommendations, ordered descending by similarity score.
type RecommendationResponse struct {
	Query           string           `json:"query"`
	TotalFound      int              `json:"total_found"`
	Recommendations []Recommendation `json:"recommendations"`
}

// IndexStats aggregates the outcome of a batch re-indexing run.
// Processed = Succeeded + Failed + Skipped once a run completes.
type IndexStats struct {
	TotalPlaces int `json:"total_places"`
	Processed   int `json:"processed"`
	Succeeded   int `json:"succeeded"`
	Failed      int `json:"failed"`
	Skipped     int `json:"skipped"`
}

// CollectionStats is the read-only introspection of the vector index
// collection, used by diagnostics.
type CollectionStats struct {
	PointsCount   uint64 `json:"points_count"`
	SegmentsCount uint64 `json:"segments_count"`
	VectorSize    uint64 `json:"vector_size"`
	Distance      string `json:"distance"`
	Status        string `json:"status"`
}

// HealthStatus is the diagnostic surface returned by the health endpoint.
type HealthStatus struct {
	Connected      bool             `json:"connected"`
	ResponseTimeMs int64            `json:"response_time_ms"`
	Collections    int              `json:"collection_count"`
	Database       bool             `json:"database"`
	Stats          *CollectionStats `json:"collection_stats,omitempty"`
	Error          string           `json:"error,omitempty"`
}

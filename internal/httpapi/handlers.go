package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"horse.fit/mentions/internal/db"
	"horse.fit/mentions/internal/search"
	"horse.fit/mentions/internal/stream"
	payloadschema "horse.fit/mentions/schema"
)

const maxPayloadBytes = 64 * 1024

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "mentions",
		"time":    time.Now().UTC(),
	})
}

func (s *Server) handleBrands(c echo.Context) error {
	brands, err := s.pool.ListBrands(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list brands failed")
		return internalError(c, "Failed to load brands")
	}
	return success(c, map[string]any{
		"items": brands,
	})
}

func (s *Server) handleMentions(c echo.Context) error {
	brandID, err := parseOptionalID(c.QueryParam("brand_id"))
	if err != nil {
		return failValidation(c, map[string]string{"brand_id": err.Error()})
	}
	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultPageSize, 1, maxPageSize)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}
	offset, err := parsePositiveInt(c.QueryParam("offset"), 0, 0, 1_000_000)
	if err != nil {
		return failValidation(c, map[string]string{"offset": err.Error()})
	}

	filter := db.MentionListFilter{
		BrandID:        brandID,
		Source:         strings.TrimSpace(c.QueryParam("source")),
		SentimentLabel: strings.TrimSpace(c.QueryParam("sentiment")),
		Limit:          limit,
		Offset:         offset,
	}

	mentions, err := s.pool.ListMentions(c.Request().Context(), filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("list mentions failed")
		return internalError(c, "Failed to load mentions")
	}

	return success(c, map[string]any{
		"items": mentions,
		"filters": map[string]any{
			"brand_id":  filter.BrandID,
			"source":    filter.Source,
			"sentiment": filter.SentimentLabel,
			"limit":     limit,
			"offset":    offset,
		},
	})
}

func (s *Server) handleMentionDetail(c echo.Context) error {
	if s.search == nil {
		return fail(c, http.StatusServiceUnavailable, "Search index is not configured", nil)
	}

	mentionID, err := parseOptionalID(c.Param("mention_id"))
	if err != nil || mentionID == nil {
		return failValidation(c, map[string]string{"mention_id": "must be a positive integer"})
	}

	doc, found, err := s.search.GetMention(c.Request().Context(), *mentionID)
	if err != nil {
		s.logger.Error().Err(err).Int64("mention_id", *mentionID).Msg("get mention failed")
		return internalError(c, "Failed to load mention")
	}
	if !found {
		return failNotFound(c, "Mention not found")
	}
	return success(c, doc)
}

func (s *Server) handleSearch(c echo.Context) error {
	if s.search == nil {
		return fail(c, http.StatusServiceUnavailable, "Search index is not configured", nil)
	}

	brandID, err := parseOptionalID(c.QueryParam("brand_id"))
	if err != nil {
		return failValidation(c, map[string]string{"brand_id": err.Error()})
	}
	limit, err := parsePositiveInt(c.QueryParam("limit"), 20, 1, 100)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	query := search.Query{
		Text:      strings.TrimSpace(c.QueryParam("q")),
		BrandID:   brandID,
		Source:    strings.TrimSpace(c.QueryParam("source")),
		Sentiment: strings.TrimSpace(c.QueryParam("sentiment")),
		Limit:     limit,
	}

	result, err := s.search.Search(c.Request().Context(), query)
	if err != nil {
		s.logger.Error().Err(err).Str("q", query.Text).Msg("search failed")
		return internalError(c, "Search failed")
	}

	return success(c, result)
}

func (s *Server) handleSemanticSearch(c echo.Context) error {
	if s.ai == nil {
		return fail(c, http.StatusServiceUnavailable, "Semantic search is not configured", nil)
	}

	text := strings.TrimSpace(c.QueryParam("q"))
	if text == "" {
		return failValidation(c, map[string]string{"q": "is required"})
	}

	brandID, err := parseOptionalID(c.QueryParam("brand_id"))
	if err != nil {
		return failValidation(c, map[string]string{"brand_id": err.Error()})
	}
	limit, err := parsePositiveInt(c.QueryParam("limit"), 10, 1, 100)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	vector, err := s.ai.EmbedText(c.Request().Context(), text)
	if err != nil {
		s.logger.Error().Err(err).Msg("embed query failed")
		return internalError(c, "Failed to embed query")
	}

	literal, err := db.ToVectorLiteral(vector)
	if err != nil {
		s.logger.Error().Err(err).Msg("build query vector failed")
		return internalError(c, "Failed to embed query")
	}

	hits, err := s.pool.SemanticSearch(c.Request().Context(), literal, db.SemanticSearchFilter{
		BrandID: brandID,
		Source:  strings.TrimSpace(c.QueryParam("source")),
		Limit:   limit,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("semantic search failed")
		return internalError(c, "Semantic search failed")
	}

	return success(c, map[string]any{
		"query": text,
		"items": hits,
	})
}

func (s *Server) handleStats(c echo.Context) error {
	brandID, err := parseOptionalID(c.QueryParam("brand_id"))
	if err != nil {
		return failValidation(c, map[string]string{"brand_id": err.Error()})
	}

	stats, err := s.pool.QueryBrandStats(c.Request().Context(), brandID)
	if err != nil {
		s.logger.Error().Err(err).Msg("query brand stats failed")
		return internalError(c, "Failed to load stats")
	}

	return success(c, map[string]any{
		"items": stats,
	})
}

// handlePublishMention accepts an external mention candidate and hands it to
// the pipeline through the raw topic. The response is 202: the mention still
// has to survive dedup, relevance, and analysis before it is queryable.
func (s *Server) handlePublishMention(c echo.Context) error {
	if s.broker == nil {
		return fail(c, http.StatusServiceUnavailable, "Ingestion is not configured", nil)
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxPayloadBytes+1))
	if err != nil {
		return fail(c, http.StatusBadRequest, "Failed to read request body", nil)
	}
	if len(body) > maxPayloadBytes {
		return fail(c, http.StatusRequestEntityTooLarge, "Payload too large", nil)
	}

	item, err := payloadschema.ValidateMentionPayload(json.RawMessage(body))
	if err != nil {
		return failValidation(c, map[string]string{"payload": err.Error()})
	}

	event := item.ToEvent()
	now := time.Now().UTC()
	event.IngestedAt = &now

	messageID, err := s.broker.Publish(c.Request().Context(), stream.TopicRaw, event.Encode())
	if err != nil {
		s.logger.Error().Err(err).Str("url", event.URL).Msg("publish mention failed")
		return internalError(c, "Failed to enqueue mention")
	}

	return successWithStatus(c, http.StatusAccepted, map[string]any{
		"message_id": messageID,
		"topic":      stream.TopicRaw,
	})
}

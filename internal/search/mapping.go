package search

// indexMapping is the index definition: english-analyzed text for title and
// content (title keeps a keyword subfield for exact matches), keyword fields
// for filters, and date fields for the pipeline timestamps.
const indexMapping = `{
  "mappings": {
    "properties": {
      "mention_id": {"type": "integer"},
      "brand_id": {"type": "integer"},
      "brand_name": {"type": "keyword"},
      "title": {
        "type": "text",
        "analyzer": "english",
        "fields": {
          "keyword": {"type": "keyword"}
        }
      },
      "content": {
        "type": "text",
        "analyzer": "english"
      },
      "url": {"type": "keyword"},
      "source": {"type": "keyword"},
      "author": {"type": "keyword"},
      "points": {"type": "integer"},
      "sentiment_score": {"type": "float"},
      "sentiment_label": {"type": "keyword"},
      "domain": {"type": "keyword"},
      "language": {"type": "keyword"},
      "word_count": {"type": "integer"},
      "reading_time": {"type": "integer"},
      "quality_score": {"type": "integer"},
      "published_date": {"type": "date"},
      "ingested_date": {"type": "date"},
      "processed_date": {"type": "date"},
      "indexed_date": {"type": "date"}
    }
  },
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0
  }
}`

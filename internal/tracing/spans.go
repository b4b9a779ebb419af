package tracing

// Span names.
const (
	SpanRefresh = "highlight.refresh"
	SpanLex     = "highlight.lex"
)

// Span attribute keys.
const (
	AttrDocumentID   = "document.id"
	AttrDocumentLen  = "document.length"
	AttrLanguage     = "language.name"
	AttrSampleLen    = "lex.sample_length"
	AttrTokensRaw    = "lex.tokens_raw"
	AttrTokensKept   = "lex.tokens_kept"
	AttrCacheHit     = "lex.cache_hit"
	AttrOversize     = "refresh.oversize"
	AttrImmediate    = "refresh.immediate"
	AttrErrorMessage = "error.message"
)

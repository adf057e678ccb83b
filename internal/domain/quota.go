package domain

// QuotaWindow is the counter record kept per client and route for one
// fixed window. It holds no request content.
type QuotaWindow struct {
	PK   string
	SK   string
	Hits int
	TTL  int64
}

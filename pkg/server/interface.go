/*
Package server implements msgpack IPC for approximate dictionary matching.

The server reads a stream of msgpack maps from its input (stdin in production)
and writes one msgpack map per request to its output. Logs go to stderr so the
output stream carries nothing but responses.

NewFromConfig builds the whole stack from a config: it applies the log level,
builds the index and measure from the index and search sections, and loads the
dictionary under the dict section limits.

# IPC

Every request carries an ID and an op; the remaining fields depend on the op.
The response echoes the ID. Once started, the server first writes

	{"status": "ready"}

A similarity search with an explicit threshold and measure:

	{"id": "q1", "op": "search", "q": "totucuong", "a": 0.6, "m": "cosine"}
	{"id": "q1", "r": ["totucuong", "totucuongblabla"], "c": 2, "t": 38}

Omitted thresholds use search.threshold from the config. Results are in
insertion order of the dictionary, and "t" is the time taken in microseconds.

Other ops:

	{"id": "1", "op": "search_one", "q": "hanh", "a": 0.8}   -> {"id", "w", "f", "t"}
	{"id": "2", "op": "add", "w": "hannah"}                   -> {"id", "s"}
	{"id": "3", "op": "has", "q": "hanh"}                     -> {"id", "f"}
	{"id": "4", "op": "prefix", "q": "han", "l": 10}          -> {"id", "r", "c", "t"}
	{"id": "5", "op": "batch", "qs": ["alice", "bob"], "a": 0.7} -> {"id", "rs", "c", "t"}
	{"id": "6", "op": "stats"}                                -> {"id", "st"}
	{"id": "7", "op": "health"}                               -> {"id", "status"}

# Errors

Failures are reported as

	{"id": "q1", "e": "similarity threshold must be in [0,1]: got 1.5", "c": 400}

with 400 for malformed requests or bad input and 500 for internal failures.
A request that cannot be decoded as a map is answered with a 400 and skipped;
a stream that is no longer valid msgpack ends the session.
*/
package server

// Request is the envelope of every IPC message.
type Request struct {
	ID      string   `msgpack:"id"`
	Op      string   `msgpack:"op"`
	Query   string   `msgpack:"q,omitempty"`
	Alpha   *float64 `msgpack:"a,omitempty"`
	Measure string   `msgpack:"m,omitempty"`
	Word    string   `msgpack:"w,omitempty"`
	Queries []string `msgpack:"qs,omitempty"`
	Limit   int      `msgpack:"l,omitempty"`
}

// SearchResponse answers search and prefix.
type SearchResponse struct {
	ID        string   `msgpack:"id"`
	Results   []string `msgpack:"r"`
	Count     int      `msgpack:"c"`
	TimeTaken int64    `msgpack:"t"`
}

// SearchOneResponse answers search_one. Word is empty when nothing matched.
type SearchOneResponse struct {
	ID        string `msgpack:"id"`
	Word      string `msgpack:"w"`
	Found     bool   `msgpack:"f"`
	TimeTaken int64  `msgpack:"t"`
}

// BatchResponse answers batch, one result list per query in request order.
type BatchResponse struct {
	ID        string     `msgpack:"id"`
	Results   [][]string `msgpack:"rs"`
	Count     int        `msgpack:"c"`
	TimeTaken int64      `msgpack:"t"`
}

// AddResponse returns the sid assigned to the added word.
type AddResponse struct {
	ID  string `msgpack:"id"`
	SID uint32 `msgpack:"s"`
}

// HasResponse answers has.
type HasResponse struct {
	ID    string `msgpack:"id"`
	Found bool   `msgpack:"f"`
}

// StatsResponse carries index statistics and the number of requests served.
type StatsResponse struct {
	ID    string         `msgpack:"id"`
	Stats map[string]int `msgpack:"st"`
}

// StatusResponse is used for the ready signal and health checks.
type StatusResponse struct {
	ID     string `msgpack:"id,omitempty"`
	Status string `msgpack:"status"`
}

// ErrorResponse holds basic error information for a failed request
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}

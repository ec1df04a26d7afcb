// Package httpclient provides a resilient HTTP request client with bounded
// exponential backoff, per-attempt timeouts and a closed error taxonomy.
//
// A Client is built once from an immutable Policy and may be shared by
// concurrent callers. Each call to Fetch (or one of the verb helpers) runs up
// to Policy.MaxRetries+1 strictly sequential attempts. Failed attempts are
// classified into exactly one of *NetworkError, *TimeoutError or *HTTPError
// (see KindOf) and Policy.RetryCondition decides whether another attempt
// follows. Only the last error is returned to the caller.
//
// Basic usage:
//
//	client := httpclient.NewBuilder().
//		WithRetries(2).
//		WithDelays(100*time.Millisecond, time.Second).
//		WithDefaultHeader("Accept", "application/json").
//		Build()
//
//	resp, err := client.Get(ctx, "http://kratos:4434/admin/identities")
//	if err != nil {
//		log.Println(httpclient.UserMessage(err))
//	}
//
// The client never logs. Observability is added by composing hooks such as
// LogRetries or Metrics.OnRetry into Policy.OnRetry.
package httpclient

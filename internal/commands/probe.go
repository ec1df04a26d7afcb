package commands

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kratos-console/gateway/config"
	"github.com/kratos-console/gateway/httpclient"
	"github.com/kratos-console/gateway/logger"
)

// maxProbeRetries matches the client.maxretries limit of the gateway config.
const maxProbeRetries = 10

// ProbeOptions holds options for the probe command
type ProbeOptions struct {
	Method    string
	Profile   string
	Retries   int
	Timeout   time.Duration
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Headers   []string
	Data      string
	Verbose   bool
}

// NewProbeCommand creates the probe command
func NewProbeCommand() *cobra.Command {
	opts := &ProbeOptions{}

	cmd := &cobra.Command{
		Use:   "probe <url>",
		Short: "Send one resilient request",
		Long: `Sends a request through the same retry, backoff and timeout machinery
the gateway uses and prints the outcome. Failures are reported with the
message an end user would see and exit non-zero.`,
		Example: `  # Check that Kratos is ready, retrying twice
  kratos-gateway probe http://localhost:4434/health/ready --retries 2

  # POST with a header
  kratos-gateway probe http://localhost:4434/admin/identities -X POST \
    -H "Content-Type: application/json" -d '{"schema_id":"default"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Method, "method", "X", http.MethodGet, "HTTP method")
	cmd.Flags().StringVar(&opts.Profile, "profile", config.ProfileIdentity, "Retry profile (default or identity)")
	cmd.Flags().IntVar(&opts.Retries, "retries", httpclient.DefaultMaxRetries, "Retries after the first attempt")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", httpclient.DefaultTimeout, "Per-attempt timeout")
	cmd.Flags().DurationVar(&opts.BaseDelay, "base-delay", httpclient.IdentityBaseDelay, "Backoff base delay")
	cmd.Flags().DurationVar(&opts.MaxDelay, "max-delay", httpclient.IdentityMaxDelay, "Backoff delay cap")
	cmd.Flags().StringArrayVarP(&opts.Headers, "header", "H", nil, `Request header as "Name: value" (repeatable)`)
	cmd.Flags().StringVarP(&opts.Data, "data", "d", "", "Request body")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Print response headers and retry logs")

	return cmd
}

func runProbe(cmd *cobra.Command, url string, opts *ProbeOptions) error {
	if opts.Profile != config.ProfileDefault && opts.Profile != config.ProfileIdentity {
		return fmt.Errorf("unknown profile %q: must be one of: %s, %s", opts.Profile, config.ProfileDefault, config.ProfileIdentity)
	}
	if opts.Retries < 0 || opts.Retries > maxProbeRetries {
		return fmt.Errorf("retries must be between 0 and %d", maxProbeRetries)
	}

	headers, err := parseHeaders(opts.Headers)
	if err != nil {
		return err
	}

	level := "error"
	if opts.Verbose {
		level = "debug"
	}
	log := logger.NewWithWriter(cmd.ErrOrStderr(), level, true, nil)

	policy := httpclient.DefaultPolicy()
	if opts.Profile == config.ProfileIdentity {
		policy = httpclient.IdentityPolicy()
	}
	client := httpclient.NewBuilder().
		WithPolicy(policy).
		WithRetries(opts.Retries).
		WithTimeout(opts.Timeout).
		WithDelays(opts.BaseDelay, opts.MaxDelay).
		WithOnRetry(httpclient.LogRetries(log)).
		WithoutRedirects().
		Build()

	req := &httpclient.Request{
		Method:  strings.ToUpper(opts.Method),
		URL:     url,
		Headers: headers,
	}
	if opts.Data != "" {
		req.Body = []byte(opts.Data)
	}

	out := cmd.OutOrStdout()
	resp, err := client.Fetch(cmd.Context(), req)
	if err != nil {
		fmt.Fprintf(out, "FAILED %s\n", httpclient.UserMessage(err))
		return fmt.Errorf("probe failed (%s): %w", httpclient.KindOf(err), err)
	}

	printResponse(out, resp, opts.Verbose)
	return nil
}

func printResponse(w io.Writer, resp *httpclient.Response, verbose bool) {
	fmt.Fprintf(w, "%s (%d attempts, %s)\n", resp.Status, resp.Stats.Attempts, resp.Stats.ElapsedTime.Round(time.Millisecond))
	if verbose {
		for name, values := range resp.Headers {
			fmt.Fprintf(w, "%s: %s\n", name, strings.Join(values, ", "))
		}
	}
	if len(resp.Body) > 0 {
		fmt.Fprintln(w, strings.TrimRight(string(resp.Body), "\n"))
	}
}

func parseHeaders(raw []string) (http.Header, error) {
	headers := http.Header{}
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q: expected \"Name: value\"", h)
		}
		headers.Add(name, strings.TrimSpace(value))
	}
	return headers, nil
}

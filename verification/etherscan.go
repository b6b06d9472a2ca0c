package verification

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/crytic/solpipe/errtypes"
	"github.com/crytic/solpipe/logging"
)

const (
	// DefaultRequestTimeout bounds a single verification request.
	DefaultRequestTimeout = 30 * time.Second

	// codeFormatSingleFile is the explorer code format for a flattened, single-file source.
	codeFormatSingleFile = "solidity-single-file"

	// statusSuccess is the explorer response status which indicates the request was accepted.
	statusSuccess = "1"
)

// Verifier submits deployed contracts for source verification.
type Verifier interface {
	// Verify submits the request. An error is returned only when the request could not be made or its response could
	// not be read; a rejected submission is reported through the Outcome.
	Verify(ctx context.Context, request *Request) (*Outcome, error)
}

// Request describes a single source verification submission.
type Request struct {
	// Address is the deployed contract address.
	Address string

	// SourcePath is the Solidity source file submitted. It is read when the request is made.
	SourcePath string

	// ContractName is the name of the deployed contract within the source.
	ContractName string

	// CompilerVersion is the full compiler version, e.g. "v0.8.24+commit.e11b9ed9".
	CompilerVersion string

	// OptimizationUsed indicates whether the optimizer was enabled.
	OptimizationUsed bool

	// Runs is the optimizer runs setting.
	Runs int
}

// Outcome describes the explorer's response to a verification submission.
type Outcome struct {
	// Status is "1" when the submission was accepted and "0" otherwise.
	Status string `json:"status"`

	// Message is a short description of the status, e.g. "OK" or "NOTOK".
	Message string `json:"message"`

	// Result holds the verification GUID on success, or the failure reason.
	Result string `json:"result"`
}

// Success indicates whether the submission was accepted. Acceptance does not mean verification has completed, the
// explorer processes submissions asynchronously.
func (o *Outcome) Success() bool {
	return o.Status == statusSuccess
}

// EtherscanClient is a Verifier for Etherscan-compatible block explorer APIs.
type EtherscanClient struct {
	// APIURL is the explorer API endpoint, e.g. "https://api-sepolia.etherscan.io/api".
	APIURL string

	// APIKey authenticates requests.
	APIKey string

	// HTTPClient performs the requests.
	HTTPClient *http.Client

	// logger describes the logger used to report submissions.
	logger *logging.Logger
}

// NewEtherscanClient creates an EtherscanClient with a DefaultRequestTimeout-bounded HTTP client. If logger is nil, a
// sub-logger of logging.GlobalLogger is used.
func NewEtherscanClient(apiURL string, apiKey string, logger *logging.Logger) *EtherscanClient {
	if logger == nil {
		logger = logging.GlobalLogger
	}
	return &EtherscanClient{
		APIURL:     apiURL,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: DefaultRequestTimeout},
		logger:     logger.NewSubLogger(logging.MODULE_KEY, logging.VERIFICATION_SERVICE),
	}
}

// Verify reads the source from disk and submits it in a single verifysourcecode POST request.
func (c *EtherscanClient) Verify(ctx context.Context, request *Request) (*Outcome, error) {
	source, err := os.ReadFile(request.SourcePath)
	if err != nil {
		return nil, errtypes.Wrap(errtypes.ReadError, err, "could not read contract source %s", request.SourcePath)
	}

	form := c.formValues(request, string(source))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errtypes.Wrap(errtypes.VerificationError, err, "could not create verification request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if c.logger != nil {
		c.logger.Info("Verifying contract ", request.ContractName, " on ", req.URL.Host, "...")
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, errtypes.Wrap(errtypes.VerificationError, err, "verification request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errtypes.Wrap(errtypes.VerificationError, err, "could not read verification response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errtypes.New(errtypes.VerificationError, "verification request returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var outcome Outcome
	if err = json.Unmarshal(body, &outcome); err != nil {
		return nil, errtypes.Wrap(errtypes.VerificationError, err, "could not parse verification response")
	}
	return &outcome, nil
}

// formValues builds the verifysourcecode parameters.
func (c *EtherscanClient) formValues(request *Request, source string) url.Values {
	optimizationUsed := "0"
	if request.OptimizationUsed {
		optimizationUsed = "1"
	}

	form := url.Values{}
	form.Set("apikey", c.APIKey)
	form.Set("module", "contract")
	form.Set("action", "verifysourcecode")
	form.Set("contractaddress", request.Address)
	form.Set("sourceCode", source)
	form.Set("codeformat", codeFormatSingleFile)
	form.Set("contractname", request.ContractName)
	form.Set("compilerversion", request.CompilerVersion)
	form.Set("optimizationUsed", optimizationUsed)
	form.Set("runs", strconv.Itoa(request.Runs))
	return form
}

// String returns a string representation of the outcome.
func (o *Outcome) String() string {
	return fmt.Sprintf("status=%s message=%s result=%s", o.Status, o.Message, o.Result)
}

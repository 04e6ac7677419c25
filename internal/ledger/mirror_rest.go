package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shane2512/AeXoWorK-sub001/internal/envelope"
)

// MirrorRESTClient is the preferred Client implementation: it submits
// messages over the mirror-node's REST API and reads them back the same
// way. Grounded on the teacher's internal/storage.HTTPClient, generalized
// from a key/value store to a topic-append/topic-fetch API.
type MirrorRESTClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewMirrorRESTClient builds a MirrorRESTClient targeting network's base
// URL with a 5-10s request timeout (spec.md §5).
func NewMirrorRESTClient(network Network) *MirrorRESTClient {
	return &MirrorRESTClient{
		baseURL:    network.baseURL(),
		httpClient: &http.Client{Timeout: 8 * time.Second},
	}
}

type submitRequest struct {
	Message string `json:"message"`
}

type submitResponse struct {
	TransactionID string `json:"transactionId"`
}

func (c *MirrorRESTClient) Submit(ctx context.Context, topicID string, payload []byte) (TxReceipt, error) {
	body, err := json.Marshal(submitRequest{Message: base64.StdEncoding.EncodeToString(payload)})
	if err != nil {
		return TxReceipt{}, envelope.Wrap(envelope.KindLedgerUnavailable, "encode submit request", err)
	}

	url := fmt.Sprintf("%s/api/v1/topics/%s/messages", c.baseURL, topicID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return TxReceipt{}, envelope.Wrap(envelope.KindLedgerUnavailable, "build submit request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return TxReceipt{}, envelope.Wrap(envelope.KindLedgerUnavailable, "submit to mirror node", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return TxReceipt{}, envelope.New(envelope.KindThrottled, "mirror node rate limit on submit")
	}
	if resp.StatusCode >= 300 {
		return TxReceipt{}, envelope.New(envelope.KindLedgerUnavailable, fmt.Sprintf("mirror node submit status %d", resp.StatusCode))
	}

	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.TransactionID == "" {
		// Mirror nodes don't always echo a transaction id synchronously;
		// mint a local correlation id so callers still get a receipt.
		return TxReceipt{TransactionID: uuid.New().String()}, nil
	}
	return TxReceipt{TransactionID: out.TransactionID}, nil
}

type mirrorMessage struct {
	SequenceNumber     uint64 `json:"sequence_number"`
	PayerAccountID     string `json:"payer_account_id"`
	ConsensusTimestamp string `json:"consensus_timestamp"`
	Message            string `json:"message"`
}

type mirrorFetchResponse struct {
	Messages []mirrorMessage `json:"messages"`
}

func (c *MirrorRESTClient) Fetch(ctx context.Context, topicID string, sinceSequence uint64, limit int, ascending bool) ([]Record, error) {
	order := "desc"
	if ascending {
		order = "asc"
	}
	url := fmt.Sprintf("%s/api/v1/topics/%s/messages?sequencenumber=gt:%d&limit=%d&order=%s",
		c.baseURL, topicID, sinceSequence, limit, order)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, envelope.Wrap(envelope.KindLedgerUnavailable, "build fetch request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, envelope.Wrap(envelope.KindLedgerUnavailable, "fetch from mirror node", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, envelope.New(envelope.KindThrottled, "mirror node rate limit on fetch")
	}
	if resp.StatusCode >= 300 {
		return nil, envelope.New(envelope.KindLedgerUnavailable, fmt.Sprintf("mirror node fetch status %d", resp.StatusCode))
	}

	var out mirrorFetchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, envelope.Wrap(envelope.KindLedgerUnavailable, "decode fetch response", err)
	}

	records := make([]Record, 0, len(out.Messages))
	for _, m := range out.Messages {
		payload, err := base64.StdEncoding.DecodeString(m.Message)
		if err != nil {
			continue
		}
		records = append(records, Record{
			Sequence:           m.SequenceNumber,
			PayerAccountID:     m.PayerAccountID,
			ConsensusTimestamp: parseConsensusTimestamp(m.ConsensusTimestamp),
			Payload:            payload,
		})
	}
	return records, nil
}

func parseConsensusTimestamp(s string) time.Time {
	// Mirror-node consensus timestamps are "<seconds>.<nanos>".
	var secs, nanos int64
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			secs, _ = strconv.ParseInt(s[:i], 10, 64)
			nanos, _ = strconv.ParseInt(s[i+1:], 10, 64)
			return time.Unix(secs, nanos).UTC()
		}
	}
	secs, _ = strconv.ParseInt(s, 10, 64)
	return time.Unix(secs, 0).UTC()
}

package proxy

import (
	"net/url"
	"strings"
)

const (
	DefaultBalanceURL = "https://api.blockcypher.com/v1/btc/main/addrs/{address}/balance"
	DefaultBTCTxsURL  = "https://blockchain.info/rawaddr/{address}"
	DefaultETHTxsURL  = "https://api.etherscan.io/api?module=account&action=txlist" +
		"&address={address}&startblock=0&endblock=99999999&page=1&offset=50&sort=desc"

	addressPlaceholder = "{address}"
)

// Endpoint describes one upstream relay. URLTemplate must contain the
// {address} placeholder. Fallback holds the provider-specific fields sent
// back alongside the error when the upstream call fails.
type Endpoint struct {
	Name        string
	What        string
	URLTemplate string
	Fallback    map[string]any
}

func Balance(urlTemplate string) Endpoint {
	if urlTemplate == "" {
		urlTemplate = DefaultBalanceURL
	}
	return Endpoint{
		Name:        "balance",
		What:        "balance",
		URLTemplate: urlTemplate,
		Fallback: map[string]any{
			"balance":             0,
			"unconfirmed_balance": 0,
		},
	}
}

func BTCTransactions(urlTemplate string) Endpoint {
	if urlTemplate == "" {
		urlTemplate = DefaultBTCTxsURL
	}
	return Endpoint{
		Name:        "btc-transactions",
		What:        "Bitcoin transactions",
		URLTemplate: urlTemplate,
		Fallback: map[string]any{
			"txs": []any{},
		},
	}
}

// ETHTransactions appends the Etherscan API key to the template when one
// is configured.
func ETHTransactions(urlTemplate, apiKey string) Endpoint {
	if urlTemplate == "" {
		urlTemplate = DefaultETHTxsURL
	}
	if apiKey = strings.TrimSpace(apiKey); apiKey != "" {
		sep := "?"
		if strings.Contains(urlTemplate, "?") {
			sep = "&"
		}
		urlTemplate += sep + "apikey=" + url.QueryEscape(apiKey)
	}
	return Endpoint{
		Name:        "eth-transactions",
		What:        "Ethereum transactions",
		URLTemplate: urlTemplate,
		Fallback: map[string]any{
			"status": "0",
			"result": []any{},
		},
	}
}

// URL substitutes the query-escaped address into the template.
func (e Endpoint) URL(address string) string {
	return strings.ReplaceAll(e.URLTemplate, addressPlaceholder, url.QueryEscape(address))
}

// FailureBody builds the response payload for a failed upstream call.
// The endpoint's Fallback map is never modified.
func (e Endpoint) FailureBody(err error) map[string]any {
	body := make(map[string]any, len(e.Fallback)+2)
	for k, v := range e.Fallback {
		body[k] = v
	}
	body["error"] = "Failed to fetch " + e.What
	if err != nil {
		body["details"] = err.Error()
	} else {
		body["details"] = ""
	}
	return body
}

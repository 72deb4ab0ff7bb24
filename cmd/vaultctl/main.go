// vaultctl is a small operator client for a running vaultgate server.
//
//	vaultctl -cmd balance
//	vaultctl -cmd deposit -amount 100
//	vaultctl -cmd deposit-asset -asset 0x... -amount 100 -quoted 95
//	vaultctl -cmd withdraw -amount 50
//	vaultctl -cmd slippage -bps 9000
//	vaultctl -cmd sweep -asset 0x... -to 0x... -amount 10
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/GoVaultGate/vaultgate/internal/model"
)

type cli struct {
	base        string
	apiKey      string
	adminKey    string
	adminSecret string
	http        *http.Client
}

func main() {
	var (
		base        = flag.String("url", envOr("VAULTGATE_URL", "http://localhost:8080"), "server base URL")
		apiKey      = flag.String("api-key", os.Getenv("VAULTGATE_API_KEY"), "gateway API key")
		adminKey    = flag.String("admin-key", os.Getenv("VAULTGATE_ADMIN_KEY"), "admin API key")
		adminSecret = flag.String("admin-secret", os.Getenv("VAULTGATE_ADMIN_SECRET"), "admin secret for sweep")
		cmd         = flag.String("cmd", "balance", "balance | capacity | stats | valuation | deposit | deposit-asset | withdraw | withdraw-asset | slippage | sweep | approve")
		asset       = flag.String("asset", "", "asset address (hex, or \"native\")")
		to          = flag.String("to", "", "destination address for sweep")
		amount      = flag.String("amount", "", "amount in settlement-asset units")
		quoted      = flag.String("quoted", "", "quoted settlement output for swap deposits")
		bps         = flag.Uint("bps", 0, "slippage tolerance in basis points")
	)
	flag.Parse()

	c := &cli{
		base:        *base,
		apiKey:      *apiKey,
		adminKey:    *adminKey,
		adminSecret: *adminSecret,
		http:        &http.Client{Timeout: 30 * time.Second},
	}

	var err error
	switch *cmd {
	case "balance":
		err = c.get("/v1/vault/balance", queryAsset(*asset))
	case "capacity":
		err = c.get("/v1/vault/capacity", "")
	case "stats":
		err = c.get("/v1/vault/stats", queryAsset(*asset))
	case "valuation":
		err = c.get("/v1/vault/valuation/"+*asset, "")
	case "deposit":
		err = c.post("/v1/vault/deposit", model.DepositRequest{Amount: *amount})
	case "deposit-asset":
		err = c.post("/v1/vault/deposit/asset", model.DepositAssetRequest{Asset: *asset, Amount: *amount, Quoted: *quoted})
	case "withdraw":
		err = c.post("/v1/vault/withdraw", model.WithdrawRequest{Amount: *amount})
	case "withdraw-asset":
		err = c.post("/v1/vault/withdraw/asset", model.WithdrawAssetRequest{Asset: *asset, Amount: *amount})
	case "slippage":
		if *bps == 0 {
			err = c.admin(http.MethodGet, "/v1/admin/slippage", nil)
		} else {
			err = c.admin(http.MethodPut, "/v1/admin/slippage", model.SlippageRequest{Bps: uint32(*bps)})
		}
	case "sweep":
		err = c.admin(http.MethodPost, "/v1/admin/sweep", model.SweepRequest{Asset: *asset, To: *to, Amount: *amount})
	case "approve":
		err = c.admin(http.MethodPost, "/v1/admin/approve/"+*asset, nil)
	default:
		err = fmt.Errorf("unknown command %q", *cmd)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (c *cli) get(path, query string) error {
	return c.do(http.MethodGet, path+query, nil, false)
}

func (c *cli) post(path string, body interface{}) error {
	return c.do(http.MethodPost, path, body, false)
}

func (c *cli) admin(method, path string, body interface{}) error {
	return c.do(method, path, body, true)
}

func (c *cli) do(method, path string, body interface{}, admin bool) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set("X-Admin-Key", c.adminKey)
		if c.adminSecret != "" {
			req.Header.Set("X-Admin-Secret", c.adminSecret)
		}
	} else if c.apiKey != "" {
		req.Header.Set("X-Gateway-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var pretty bytes.Buffer
	if json.Indent(&pretty, raw, "", "  ") == nil {
		fmt.Println(pretty.String())
	} else {
		fmt.Println(string(raw))
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}

func queryAsset(asset string) string {
	if asset == "" {
		return ""
	}
	return "?asset=" + asset
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

package bootstrap

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/Rodario/dash/team"
)

// Client joins a rendezvous Server and polls it for the completed
// roster. It implements team.Discoverer.
type Client struct {
	ServerAddr string
	MyAddr     string
	Secret     string
	Timeout    time.Duration
	PollEvery  time.Duration
}

var _ team.Discoverer = (*Client)(nil)

func (c *Client) pollEvery() time.Duration {
	if c.PollEvery > 0 {
		return c.PollEvery
	}
	return 100 * time.Millisecond
}

// Discover registers c.MyAddr with the rendezvous server and blocks
// until every expected unit has joined, returning the full roster.
func (c *Client) Discover() ([]team.Endpoint, error) {
	token, err := SignJoinToken(c.Secret, c.Timeout+time.Second)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: sign join token: %w", err)
	}
	body, _ := json.Marshal(joinRequest{Token: token, Addr: c.MyAddr})

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI("http://" + c.ServerAddr + "/join")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetBody(body)
	if err := fasthttp.Do(req, resp); err != nil {
		return nil, fmt.Errorf("bootstrap: join: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("bootstrap: join rejected: status %d", resp.StatusCode())
	}

	deadline := time.Now().Add(c.Timeout)
	for {
		eps, ready, err := c.fetchRoster()
		if err != nil {
			return nil, err
		}
		if ready {
			return eps, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("bootstrap: timed out waiting for roster")
		}
		time.Sleep(c.pollEvery())
	}
}

func (c *Client) fetchRoster() ([]team.Endpoint, bool, error) {
	statusCode, body, err := fasthttp.Get(nil, "http://"+c.ServerAddr+"/roster")
	if err != nil {
		return nil, false, fmt.Errorf("bootstrap: roster: %w", err)
	}
	if statusCode == fasthttp.StatusAccepted {
		return nil, false, nil
	}
	if statusCode != fasthttp.StatusOK {
		return nil, false, fmt.Errorf("bootstrap: roster: status %d", statusCode)
	}
	var eps []team.Endpoint
	if err := json.Unmarshal(body, &eps); err != nil {
		return nil, false, fmt.Errorf("bootstrap: decode roster: %w", err)
	}
	return eps, true, nil
}

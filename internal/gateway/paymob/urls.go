package paymob

import (
	"fmt"
	"net/url"
)

// IframeURL builds the hosted iframe address for a created session. Both
// route parameters are escaped so a hostile token cannot break out of the
// URL structure.
func (c *Client) IframeURL(token, iframeID string) string {
	return fmt.Sprintf("%s/api/acceptance/iframe/%s?payment_token=%s",
		c.cfg.HostedBaseURL,
		url.PathEscape(iframeID),
		url.QueryEscape(token),
	)
}

// UnifiedCheckoutURL builds the hosted unified checkout address for a
// client secret session.
func (c *Client) UnifiedCheckoutURL(clientSecret string) string {
	q := url.Values{}
	q.Set("publicKey", c.cfg.PublicKey)
	q.Set("clientSecret", clientSecret)
	return fmt.Sprintf("%s/unifiedcheckout/?%s", c.cfg.HostedBaseURL, q.Encode())
}

package tracking

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// URLBuilder formats the public tracking URLs injected into outgoing
// email. base is the externally reachable origin without a trailing slash,
// e.g. "https://t.example.com".
type URLBuilder struct {
	base string
}

func NewURLBuilder(base string) *URLBuilder {
	return &URLBuilder{base: strings.TrimRight(base, "/")}
}

// OpenPixelURL returns the pixel URL for one recipient of one campaign.
func (b *URLBuilder) OpenPixelURL(campaignID, subscriberID uuid.UUID) string {
	return fmt.Sprintf("%s/t/open/%s/%s", b.base, campaignID, subscriberID)
}

// ClickURL wraps a destination link for one recipient.
func (b *URLBuilder) ClickURL(campaignID, subscriberID uuid.UUID, target string) string {
	return fmt.Sprintf("%s/t/click/%s/%s?url=%s", b.base, campaignID, subscriberID,
		url.QueryEscape(target))
}

// UnsubscribeURL returns the one-click unsubscribe link for a subscriber,
// attributed to a campaign when one is given.
func (b *URLBuilder) UnsubscribeURL(token string, campaignID *uuid.UUID) string {
	u := fmt.Sprintf("%s/t/unsubscribe?token=%s", b.base, url.QueryEscape(token))
	if campaignID != nil {
		u += "&campaign=" + campaignID.String()
	}
	return u
}

var hrefPattern = regexp.MustCompile(`href="(https?://[^"]+)"`)

// InstrumentHTML prepares a rendered body for one recipient: every
// absolute link is wrapped through the click redirect, the open pixel is
// appended, and an unsubscribe footer link is added. Links already
// pointing at the tracking host are left alone so a forwarded body is not
// double-wrapped.
func (b *URLBuilder) InstrumentHTML(html string, campaignID, subscriberID uuid.UUID, unsubToken string) string {
	out := hrefPattern.ReplaceAllStringFunc(html, func(match string) string {
		target := hrefPattern.FindStringSubmatch(match)[1]
		if strings.HasPrefix(target, b.base+"/t/") {
			return match
		}
		return fmt.Sprintf(`href="%s"`, b.ClickURL(campaignID, subscriberID, target))
	})

	unsubURL := b.UnsubscribeURL(unsubToken, &campaignID)
	out += fmt.Sprintf(`<p class="unsubscribe" style="font-size:12px;color:#888;"><a href="%s">Unsubscribe</a></p>`, unsubURL)
	out += fmt.Sprintf(`<img src="%s" width="1" height="1" alt="">`, b.OpenPixelURL(campaignID, subscriberID))
	return out
}

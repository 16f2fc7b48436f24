package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/skip2/go-qrcode"
)

const inviteQRSize = 256

// InviteURL is the link that opens a session in the browser client
func InviteURL(publicURL, sid string) string {
	return strings.TrimRight(publicURL, "/") + "/" + sid
}

// InviteQR renders url as a PNG QR code
func InviteQR(url string) ([]byte, error) {
	png, err := qrcode.Encode(url, qrcode.Medium, inviteQRSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// serveInviteQR answers GET /qr/{sid} so a second pilot can scan their way in
func (h *Hub) serveInviteQR(w http.ResponseWriter, r *http.Request) {
	sid := r.PathValue("sid")
	if h.sessions.GetSession(sid) == nil {
		http.NotFound(w, r)
		return
	}
	png, err := InviteQR(InviteURL(h.cfg.PublicURL, sid))
	if err != nil {
		h.log.Error().Err(err).Str("session", sid).Msg("invite qr")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(png)
}

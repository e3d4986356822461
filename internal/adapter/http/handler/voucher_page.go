package handler

import (
	"bytes"
	"html/template"
	"net/http"
	"time"

	"rubi-trail/pkg/apperror"

	"github.com/gin-gonic/gin"
)

var voucherPage = template.Must(template.New("voucher").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width,initial-scale=1" />
  <title>Voucher</title>
  <style>
    body { font-family: system-ui, -apple-system, Segoe UI, Roboto, Arial; padding: 24px; }
    .card { max-width: 520px; margin: 0 auto; border: 1px solid #ddd; border-radius: 14px; padding: 18px; }
    .code { font-size: 22px; font-weight: 800; letter-spacing: 1px; word-break: break-all; }
    .muted { color: #666; }
    .redeemed { color: #b00; font-weight: 700; }
  </style>
</head>
<body>
  <div class="card">
    <h2>{{.Title}}</h2>
    <p class="muted">{{.Description}}</p>
    <p class="muted">{{.Partner}}</p>
    <p class="code">{{.Code}}</p>
    <p class="muted">Created: {{.CreatedAt}}</p>
    {{if .Redeemed}}<p class="redeemed">Redeemed: {{.RedeemedAt}}</p>
    {{else}}<button id="redeem">Redeem</button>
    <p id="result" class="muted"></p>
    <script>
      document.getElementById("redeem").onclick = async function () {
        const res = await fetch("/api/vouchers/" + encodeURIComponent({{.Code}}) + "/redeem", { method: "POST" });
        const body = await res.json();
        document.getElementById("result").textContent = (body.data && body.data.message) || body.message;
      };
    </script>{{end}}
  </div>
</body>
</html>
`))

type voucherPageData struct {
	Title       string
	Description string
	Partner     string
	Code        string
	CreatedAt   string
	Redeemed    bool
	RedeemedAt  string
}

// Page handles GET /voucher/:token, the target of the redemption link.
func (h *VoucherHandler) Page(c *gin.Context) {
	details, err := h.voucherSvc.Get(c.Request.Context(), c.Param("token"))
	if err != nil {
		if apperror.Is(err, apperror.CodeNotFound) {
			c.String(http.StatusNotFound, "Voucher not found")
			return
		}
		c.String(http.StatusInternalServerError, "Internal server error")
		return
	}

	data := voucherPageData{
		Title:       details.Reward.Title,
		Description: details.Reward.Description,
		Partner:     details.Reward.Partner,
		Code:        details.Voucher.Token,
		CreatedAt:   details.Voucher.CreatedAt.UTC().Format(time.RFC1123),
		Redeemed:    !details.Voucher.IsRedeemable(),
	}
	if details.Voucher.RedeemedAt != nil {
		data.RedeemedAt = details.Voucher.RedeemedAt.UTC().Format(time.RFC1123)
	}

	var buf bytes.Buffer
	if err := voucherPage.Execute(&buf, data); err != nil {
		c.String(http.StatusInternalServerError, "Internal server error")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

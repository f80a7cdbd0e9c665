package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/foxzi/phishguard/internal/metrics"
	"github.com/foxzi/phishguard/internal/store"
	"github.com/foxzi/phishguard/internal/tracker"
)

// trainingPage is shown to anyone who follows a simulation link. It is
// identical for first and repeat visits so the page itself never reveals
// whether the click was counted.
const trainingPage = `<!DOCTYPE html>
<html>
<head>
    <title>PhishGuard Training</title>
    <style>
        body {
            font-family: Arial, sans-serif;
            max-width: 600px;
            margin: 100px auto;
            padding: 20px;
            text-align: center;
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            color: white;
        }
        .box {
            background: rgba(255,255,255,0.1);
            backdrop-filter: blur(10px);
            padding: 40px;
            border-radius: 20px;
            box-shadow: 0 8px 32px rgba(0,0,0,0.3);
        }
        h1 { font-size: 48px; margin: 0 0 20px 0; }
        p { font-size: 18px; line-height: 1.6; }
        .emoji { font-size: 72px; margin: 20px 0; }
        .tips {
            text-align: left;
            margin-top: 30px;
            background: rgba(255,255,255,0.1);
            padding: 20px;
            border-radius: 10px;
        }
        .tips li { margin: 10px 0; }
    </style>
</head>
<body>
    <div class="box">
        <div class="emoji">&#127907;</div>
        <h1>You've Been Phished!</h1>
        <p><strong>Don't worry - this was a training exercise.</strong></p>
        <p>This was a simulated phishing attack designed to help you recognize threats.</p>

        <div class="tips">
            <h3>&#128737; How to Spot Phishing:</h3>
            <ul>
                <li>Check sender's email carefully</li>
                <li>Look for urgent language and threats</li>
                <li>Hover over links before clicking</li>
                <li>Be suspicious of unexpected requests</li>
                <li>When in doubt, contact IT directly</li>
            </ul>
        </div>

        <p style="margin-top: 30px; font-size: 14px; opacity: 0.8;">
            This test was conducted by PhishGuard Security Training
        </p>
    </div>
</body>
</html>
`

const invalidLinkPage = `<!DOCTYPE html>
<html>
<body><h1>Invalid link</h1></body>
</html>
`

// handleTrack handles GET /track/{token}
func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	result := s.tracker.Resolve(r.Context(), token, store.ClickMeta{
		SourceAddr: r.RemoteAddr,
		UserAgent:  r.Header.Get("User-Agent"),
	})

	metrics.IncClicks(string(result.Outcome))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if result.Outcome == tracker.OutcomeInvalidToken {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(invalidLinkPage))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(trainingPage))
}

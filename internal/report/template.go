package report

// EmailTemplate wraps a rendered digest body for HTML delivery.
// It is embedded as a Go constant; no external file dependencies.
const EmailTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
  :root {
    --bg: #0f172a;
    --text: #e2e8f0;
    --muted: #94a3b8;
    --border: #334155;
    --accent: #38bdf8;
    --green: #34d399;
    --red: #f87171;
  }
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
    color: var(--text);
    background: var(--bg);
    line-height: 1.6;
    max-width: 640px;
    margin: 0 auto;
    padding: 20px;
  }
  h1 { font-size: 1.4rem; color: var(--accent); margin-bottom: 4px; }
  h2 { font-size: 1.1rem; margin: 20px 0 8px; border-bottom: 1px solid var(--border); }
  table { width: 100%; border-collapse: collapse; font-size: 0.9rem; }
  th, td { padding: 6px 8px; border-bottom: 1px solid var(--border); text-align: left; }
  th { color: var(--muted); font-weight: 500; }
  .muted { color: var(--muted); font-size: 0.85rem; }
  .footer { margin-top: 24px; padding-top: 8px; border-top: 1px solid var(--border); color: var(--muted); font-size: 0.75rem; }
</style>
</head>
<body>
<p class="muted">{{.Generated}}</p>
{{.Body}}
<div class="footer">StockPulse {{.Footer}}</div>
</body>
</html>`

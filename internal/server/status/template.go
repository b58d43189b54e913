package status

import (
	"html/template"
)

type statusTemplateData struct {
	Version  string
	Location string
	Log      string

	IsError bool
	Error   string

	CSRFField template.HTML
}

const templateString = `
<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1, shrink-to-fit=no">
  <title>cbusboot status</title>
  <style>
    body {
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", "Roboto", "Helvetica Neue", Arial, sans-serif;
    }

    h1 {
      font-size: 36px;
    }

    p {
      color: #858585;
    }

    .error {
      border: 1px solid orangered;
      border-radius: 4px;
      max-width: 500px;
      margin: 20px auto;
      color: darkred;
      padding: 13px 0;
    }

    .item {
      border: 1px solid lightgray;
      border-radius: 4px;
      max-width: 500px;
      margin: 20px auto;
      padding: 10px 0;
    }

    .inner-container {
      max-width: 1024px;
      margin: 0 auto;
      text-align: center;
    }

    .badge {
      display: inline-block;
      padding: 6px 10px;
      border: 1px solid #1565C0;
      border-radius: 4px;
      color: #1565C0;
    }

    .btn-primary {
      display: inline-block;
      padding: 10px 40px;
      background-color: #1565C0;
      color: white;
      border-radius: 4px;
    }

    .space-top {
      margin-top: 34px;
    }
  </style>
</head>

<body>
  <div class="inner-container">
    <h1>cbusboot status</h1>
    <span class="badge">Version: {{.Version}}</span>

    <div class="item">
      {{if .Location}}
        <b>Adapter port:</b> {{.Location}}
      {{else}}
        Adapter not located yet
      {{end}}
    </div>

    {{if .IsError}}
      <div class="error">
        <b>Last error:</b> {{.Error}}
      </div>
    {{end}}

    <div class="space-top">
      <p>Console Log</p>
      <textarea rows="25" cols="150" id="log">
{{.Log}}
      </textarea>
      <form method="post" action="/status/log.gz">
        {{.CSRFField}}
        <button type="submit" class="btn-primary">Download detailed log</button>
      </form>
    </div>
  </div>
</body>
</html>
`

var statusTemplate = template.Must(template.New("status").Parse(templateString))

/*
 *    Copyright 2025 apexrank
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *        http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package view

import (
	"html/template"
	"net/http"

	"go.uber.org/zap"
)

const linkResultPage = `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>apexrank</title>
</head>
<body>
{{if .Error}}
	<h1>Linking failed</h1>
	<p>{{.Error}}</p>
	<p>Run the link command in Discord again to retry.</p>
{{else}}
	<h1>Account linked</h1>
	<p>Welcome, {{.DisplayName}}! Your iRacing account is now linked. You can close this window.</p>
{{end}}
</body>
</html>
`

// LinkResultData feeds the page shown after the OAuth callback.
type LinkResultData struct {
	DisplayName string
	Error       string
}

// LinkResultRenderer renders the post-callback confirmation page.
type LinkResultRenderer struct {
	logger   *zap.Logger
	template *template.Template
}

// NewLinkResultRenderer creates a new LinkResultRenderer.
func NewLinkResultRenderer(logger *zap.Logger) *LinkResultRenderer {
	return &LinkResultRenderer{
		logger:   logger.Named("link_result_renderer"),
		template: template.Must(template.New("link_result").Parse(linkResultPage)),
	}
}

// Render writes the page with the given status code.
func (r *LinkResultRenderer) Render(w http.ResponseWriter, status int, data LinkResultData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := r.template.Execute(w, data); err != nil {
		r.logger.Error("Failed to render link result page", zap.Error(err))
	}
}

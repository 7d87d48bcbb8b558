package report

// reportTemplate 是面试报告的 HTML 模板，按 A4 打印。
const reportTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Position.Title}} · {{.CandidateName}}</title>
    <style>
        @page { size: A4; margin: 18mm 16mm; }
        body {
            margin: 0;
            font-family: 'Helvetica Neue', Arial, sans-serif;
            font-size: 10.5pt;
            color: #1f2933;
        }
        h1 { font-size: 18pt; margin: 0 0 4px; }
        h2 { font-size: 12pt; margin: 20px 0 8px; border-bottom: 1px solid #d9e2ec; padding-bottom: 4px; }
        .meta { color: #627d98; margin-bottom: 16px; }
        .score {
            display: inline-block;
            font-size: 28pt;
            font-weight: 600;
            color: {{scoreColor .Score}};
        }
        .score small { font-size: 11pt; color: #627d98; }
        .recommendation { text-transform: capitalize; font-weight: 600; }
        table { width: 100%; border-collapse: collapse; }
        th, td { text-align: left; padding: 6px 4px; vertical-align: top; border-bottom: 1px solid #f0f4f8; }
        th { color: #486581; font-weight: 600; }
        .qa { page-break-inside: avoid; margin-bottom: 12px; }
        .qa .q { font-weight: 600; }
        .qa .fb { color: #486581; font-style: italic; }
    </style>
</head>
<body>
    <h1>{{.Position.Title}}</h1>
    <div class="meta">
        {{.CandidateName}}{{if .CandidateEmail}} &lt;{{.CandidateEmail}}&gt;{{end}}
        · {{.StatusLabel}}{{if .CompletedAt}} · {{.CompletedAt}}{{end}}
    </div>

    {{if .HasScore}}
    <div class="score">{{printf "%.1f" .Score}} <small>/ 10 ({{printf "%.0f" .Percent}}%)</small></div>
    {{else}}
    <div class="meta">No aggregate score.</div>
    {{end}}

    {{with .Feedback}}
        {{if .Recommendation}}<p>Recommendation: <span class="recommendation">{{.Recommendation}}</span></p>{{end}}
        {{if .Summary}}<h2>Summary</h2><p>{{.Summary}}</p>{{end}}
        {{with .Ratings}}
        <h2>Ratings</h2>
        <table>
            <tr><th>Technical</th><td>{{printf "%.1f" .Technical}}</td></tr>
            <tr><th>Communication</th><td>{{printf "%.1f" .Communication}}</td></tr>
            <tr><th>Problem solving</th><td>{{printf "%.1f" .ProblemSolving}}</td></tr>
            <tr><th>Experience</th><td>{{printf "%.1f" .Experience}}</td></tr>
        </table>
        {{end}}
        {{if .Strengths}}<h2>Strengths</h2><ul>{{range .Strengths}}<li>{{.}}</li>{{end}}</ul>{{end}}
        {{if .Weaknesses}}<h2>Areas to improve</h2><ul>{{range .Weaknesses}}<li>{{.}}</li>{{end}}</ul>{{end}}
    {{end}}

    <h2>Answers</h2>
    {{range .Answers}}
    <div class="qa">
        <div class="q">Q{{inc .Index}}. {{.Question}}{{if .Score}} ({{deref .Score}}/10){{end}}</div>
        <div>{{.Answer}}</div>
        {{if .Feedback}}<div class="fb">{{.Feedback}}</div>{{end}}
    </div>
    {{else}}
    <p class="meta">No answers were recorded.</p>
    {{end}}
</body>
</html>
`

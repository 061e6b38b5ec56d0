package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hrflow/hrflow/engine"
	"github.com/hrflow/hrflow/model"
)

// compileNode maps one domain node onto one engine node. Every kind
// compiles to something - an unknown kind becomes an inert pass-through so
// a legacy node never aborts an otherwise valid workflow.
func (c *Compiler) compileNode(node model.WorkflowNode, position [2]float64) (engine.Node, error) {
	compiled := engine.Node{
		Parameters:  map[string]any{},
		Name:        nodeName(node),
		TypeVersion: 1,
		Position:    position,
	}
	switch node.Kind {
	case model.KIND_TRIGGER:
		compileTrigger(node, &compiled)
	case model.KIND_HTTP:
		compileHttp(node, &compiled)
	case model.KIND_EMAIL:
		if err := c.compileEmail(node, &compiled); err != nil {
			return engine.Node{}, err
		}
	case model.KIND_DATABASE:
		if err := c.compileDatabase(node, &compiled); err != nil {
			return engine.Node{}, err
		}
	case model.KIND_CONDITION:
		compileCondition(&compiled)
	case model.KIND_VARIABLE:
		compileVariable(node, &compiled)
	case model.KIND_DATETIME:
		compileDatetime(node, &compiled)
	case model.KIND_LOGGER:
		compileLogger(node, &compiled)
	case model.KIND_CV_PARSE:
		compileCvParse(node, &compiled)
	default:
		compiled.Type = engine.NODE_TYPE_NO_OP
	}
	return compiled, nil
}

func nodeName(node model.WorkflowNode) string {
	return fmt.Sprintf("%d %s", node.Id, node.DisplayName())
}

// compileTrigger flattens the nested employee payload into dotted fields.
// A static config value wins; otherwise the field reads itself off the
// inbound webhook body at run time. The node also stamps when and how the
// run was triggered.
func compileTrigger(node model.WorkflowNode, compiled *engine.Node) {
	fields := make([]paramPair, 0, len(model.EmployeeFields)+2)
	for _, field := range model.EmployeeFields {
		value := strings.TrimSpace(node.Config.GetString(field))
		if value == "" {
			value = employeeFieldFallback(field)
		}
		fields = append(fields, paramPair{Name: "employee." + field, Value: value})
	}
	trigger := strings.TrimSpace(node.Config.GetString("triggerType"))
	if trigger == "" {
		trigger = "webhook"
	}
	fields = append(fields,
		paramPair{Name: "meta.triggeredAt", Value: nowExpression},
		paramPair{Name: "meta.trigger", Value: trigger},
	)
	compiled.Type = engine.NODE_TYPE_SET
	compiled.Parameters = setParameters(fields)
}

// compileHttp emits a generic outbound call. Headers and body accept both
// authoring formats handled by parseKeyValueBlock; a GET carries no body.
func compileHttp(node model.WorkflowNode, compiled *engine.Node) {
	method := strings.ToUpper(strings.TrimSpace(node.Config.GetString("method")))
	if method == "" {
		method = "GET"
	}
	params := map[string]any{
		"url":            node.Config.GetString("url"),
		"requestMethod":  method,
		"jsonParameters": false,
		"options":        map[string]any{},
	}
	if headers := parseKeyValueBlock(node.Config.GetString("headers")); len(headers) > 0 {
		params["headerParametersUi"] = pairsToParameterList(headers)
	}
	if method != "GET" {
		if body := parseKeyValueBlock(node.Config.GetString("body")); len(body) > 0 {
			params["bodyParametersUi"] = pairsToParameterList(body)
		}
	}
	compiled.Type = engine.NODE_TYPE_HTTP_REQUEST
	compiled.Parameters = params
}

// compileEmail emits a send-mail node. The recipient falls back to the
// employee email parsed by the trigger when the author left it empty or
// wrote the conceptual placeholder instead of a real expression. Mail
// transport credentials are a deployment requirement, not node data.
func (c *Compiler) compileEmail(node model.WorkflowNode, compiled *engine.Node) error {
	if c.creds.SmtpCredentialId == "" || c.creds.SmtpCredentialName == "" {
		return ConfigError{Message: "smtp credential is not configured"}
	}
	to := strings.TrimSpace(node.Config.GetString("to"))
	switch {
	case to == "" || isEmployeeEmailPlaceholder(to):
		to = employeeEmailExpression
	case isHrInboxPlaceholder(to) && c.creds.DefaultHrInboxEmail != "":
		to = c.creds.DefaultHrInboxEmail
	}
	from := strings.TrimSpace(node.Config.GetString("from"))
	if from == "" {
		from = c.creds.DefaultSenderEmail
	}
	subject := strings.TrimSpace(node.Config.GetString("subject"))
	if subject == "" {
		subject = "=Welcome aboard, {{ $json.employee.name }}!"
	}
	body := node.Config.GetString("body")
	if strings.TrimSpace(body) == "" {
		body = "=Hi {{ $json.employee.name }},\n\n" +
			"Welcome to the {{ $json.employee.department }} team as our new {{ $json.employee.role }}. " +
			"Your start date is {{ $json.employee.startDate }}.\n\n" +
			"Best regards,\nHR"
	}
	compiled.Type = engine.NODE_TYPE_EMAIL_SEND
	compiled.Parameters = map[string]any{
		"fromEmail": from,
		"toEmail":   to,
		"subject":   subject,
		"text":      body,
		"options":   map[string]any{},
	}
	compiled.Credentials = map[string]engine.CredentialRef{
		"smtp": {Id: c.creds.SmtpCredentialId, Name: c.creds.SmtpCredentialName},
	}
	return nil
}

func isEmployeeEmailPlaceholder(to string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(to))
	trimmed = strings.TrimPrefix(trimmed, "{{")
	trimmed = strings.TrimSuffix(trimmed, "}}")
	trimmed = strings.Trim(trimmed, "{} ")
	return trimmed == "employee.email"
}

// hr.inbox addresses the shared HR mailbox without hardcoding it per node.
func isHrInboxPlaceholder(to string) bool {
	return strings.EqualFold(strings.TrimSpace(to), "hr.inbox")
}

// defaultUpsertQuery finds or creates the user row, then finds or creates
// the linked employee row, in one CTE statement so the engine issues a
// single atomic call. Parameters arrive positionally from queryParams.
const defaultUpsertQuery = "WITH existing_user AS (\n" +
	"  SELECT id FROM users WHERE email = $1\n" +
	"), new_user AS (\n" +
	"  INSERT INTO users (email, name, role)\n" +
	"  SELECT $1, $2, 'employee'\n" +
	"  WHERE NOT EXISTS (SELECT 1 FROM existing_user)\n" +
	"  RETURNING id\n" +
	"), the_user AS (\n" +
	"  SELECT id FROM existing_user UNION ALL SELECT id FROM new_user\n" +
	")\n" +
	"INSERT INTO employees (user_id, department, role, start_date, manager_email)\n" +
	"SELECT id, $3, $4, $5, $6 FROM the_user\n" +
	"WHERE NOT EXISTS (SELECT 1 FROM employees e WHERE e.user_id = the_user.id)"

const defaultUpsertParams = "={{ $json.employee.email }},{{ $json.employee.name }}," +
	"{{ $json.employee.department }},{{ $json.employee.role }}," +
	"{{ $json.employee.startDate }},{{ $json.employee.managerEmail }}"

func (c *Compiler) compileDatabase(node model.WorkflowNode, compiled *engine.Node) error {
	if c.creds.DbCredentialId == "" || c.creds.DbCredentialName == "" {
		return ConfigError{Message: "database credential is not configured"}
	}
	query := node.Config.GetString("customQuery")
	additional := map[string]any{}
	if strings.TrimSpace(query) == "" {
		query = defaultUpsertQuery
		additional["queryParams"] = defaultUpsertParams
	}
	compiled.Type = engine.NODE_TYPE_POSTGRES
	compiled.Parameters = map[string]any{
		"operation":        "executeQuery",
		"query":            query,
		"additionalFields": additional,
	}
	compiled.Credentials = map[string]engine.CredentialRef{
		"postgres": {Id: c.creds.DbCredentialId, Name: c.creds.DbCredentialName},
	}
	return nil
}

// compileCondition emits a bare branching shell; which edge goes to which
// output port is entirely the connection builder's business.
func compileCondition(compiled *engine.Node) {
	compiled.Type = engine.NODE_TYPE_IF
	compiled.Parameters = map[string]any{
		"conditions": map[string]any{
			"boolean": []any{},
			"number":  []any{},
			"string":  []any{},
		},
	}
}

func compileVariable(node model.WorkflowNode, compiled *engine.Node) {
	name := strings.TrimSpace(node.Config.GetString("name"))
	if name == "" {
		name = "variable"
	}
	compiled.Type = engine.NODE_TYPE_SET
	compiled.Parameters = setParameters([]paramPair{
		{Name: name, Value: node.Config.GetString("value")},
	})
}

var datetimeUnitMillis = map[string]int64{
	"minutes": 60 * 1000,
	"hours":   60 * 60 * 1000,
	"days":    24 * 60 * 60 * 1000,
	"weeks":   7 * 24 * 60 * 60 * 1000,
}

// compileDatetime computes a timestamp into one named field. The operation
// selects among three expression templates: plain now, now with a signed
// offset, and now formatted as a date.
func compileDatetime(node model.WorkflowNode, compiled *engine.Node) {
	name := strings.TrimSpace(node.Config.GetString("name"))
	if name == "" {
		name = "datetime"
	}
	operation := strings.ToLower(strings.TrimSpace(node.Config.GetString("operation")))
	var value string
	switch operation {
	case "add", "subtract":
		unit := strings.ToLower(strings.TrimSpace(node.Config.GetString("unit")))
		millis, known := datetimeUnitMillis[unit]
		if !known {
			millis = datetimeUnitMillis["days"]
		}
		amount, _ := node.Config.GetInt("amount")
		offset := int64(amount) * millis
		if operation == "subtract" {
			offset = -offset
		}
		value = fmt.Sprintf("={{ new Date(Date.now() + (%d)).toISOString() }}", offset)
	case "format":
		value = "={{ new Date().toISOString().slice(0, 10) }}"
	default:
		value = nowExpression
	}
	compiled.Type = engine.NODE_TYPE_SET
	compiled.Parameters = setParameters([]paramPair{{Name: name, Value: value}})
}

// compileLogger tags the data stream with a log tuple and passes everything
// else through untouched; a logger node is never a terminal sink.
func compileLogger(node model.WorkflowNode, compiled *engine.Node) {
	level := strings.TrimSpace(node.Config.GetString("level"))
	if level == "" {
		level = "info"
	}
	compiled.Type = engine.NODE_TYPE_SET
	compiled.Parameters = setParameters([]paramPair{
		{Name: "log.message", Value: node.Config.GetString("message")},
		{Name: "log.level", Value: level},
		{Name: "log.timestamp", Value: nowExpression},
		{Name: "log.nodeId", Value: strconv.FormatInt(node.Id, 10)},
	})
}

// compileCvParse only marks that parsing happened: the actual text
// extraction runs in the orchestrator before the engine is invoked.
func compileCvParse(node model.WorkflowNode, compiled *engine.Node) {
	compiled.Type = engine.NODE_TYPE_SET
	compiled.Parameters = setParameters([]paramPair{
		{Name: "cvParse.nodeId", Value: strconv.FormatInt(node.Id, 10)},
		{Name: "cvParse.parsedAt", Value: nowExpression},
	})
}

func setParameters(fields []paramPair) map[string]any {
	values := make([]any, 0, len(fields))
	for _, f := range fields {
		values = append(values, map[string]any{"name": f.Name, "value": f.Value})
	}
	return map[string]any{
		"values":  map[string]any{"string": values},
		"options": map[string]any{},
	}
}

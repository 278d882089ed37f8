package eino

import (
	"github.com/cloudwego/eino/schema"

	"github.com/arborworks/arbor/internal/engine/domain/entity"
	"github.com/arborworks/arbor/pkg/utils/json"
)

// ToSchemaMessages converts domain messages to Eino schema messages.
func ToSchemaMessages(msgs []*entity.Message) []*schema.Message {
	result := make([]*schema.Message, 0, len(msgs))
	for _, msg := range msgs {
		result = append(result, ToSchemaMessage(msg))
	}
	return result
}

// ToSchemaMessage converts one domain message. Tool-call arguments are
// re-encoded to the JSON string the wire format expects.
func ToSchemaMessage(msg *entity.Message) *schema.Message {
	sm := &schema.Message{
		Role:       toSchemaRole(msg.Role),
		Content:    msg.Content,
		Name:       msg.Name,
		ToolCallID: msg.ToolCallID,
	}

	if len(msg.ToolCalls) > 0 {
		sm.ToolCalls = make([]schema.ToolCall, 0, len(msg.ToolCalls))
		for _, tc := range msg.ToolCalls {
			args, err := json.MarshalString(tc.Arguments)
			if err != nil {
				args = "{}"
			}
			sm.ToolCalls = append(sm.ToolCalls, schema.ToolCall{
				ID: tc.ID,
				Function: schema.FunctionCall{
					Name:      tc.Name,
					Arguments: args,
				},
			})
		}
	}
	return sm
}

// toolInfos converts tool definitions to the Eino tool schema.
func toolInfos(tools []*entity.ToolDefinition) []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(tools))
	for _, t := range tools {
		infos = append(infos, &schema.ToolInfo{
			Name:        t.Name,
			Desc:        t.Description,
			ParamsOneOf: schema.NewParamsOneOfByParams(toParameterInfos(t.Parameters)),
		})
	}
	return infos
}

// toParameterInfos maps a JSON-Schema-like parameter description
// ({"type":"object","properties":{...},"required":[...]}) onto Eino's
// ParameterInfo tree.
func toParameterInfos(params map[string]any) map[string]*schema.ParameterInfo {
	out := map[string]*schema.ParameterInfo{}
	props, _ := params["properties"].(map[string]any)
	required := map[string]bool{}
	if reqList, ok := params["required"].([]any); ok {
		for _, r := range reqList {
			if name, ok := r.(string); ok {
				required[name] = true
			}
		}
	} else if reqList, ok := params["required"].([]string); ok {
		for _, name := range reqList {
			required[name] = true
		}
	}
	for name, raw := range props {
		prop, _ := raw.(map[string]any)
		info := &schema.ParameterInfo{
			Type:     toDataType(prop),
			Required: required[name],
		}
		if desc, ok := prop["description"].(string); ok {
			info.Desc = desc
		}
		out[name] = info
	}
	return out
}

func toDataType(prop map[string]any) schema.DataType {
	t, _ := prop["type"].(string)
	switch t {
	case "number":
		return schema.Number
	case "integer":
		return schema.Integer
	case "boolean":
		return schema.Boolean
	case "object":
		return schema.Object
	case "array":
		return schema.Array
	default:
		return schema.String
	}
}

// toSchemaRole converts domain role to Eino schema role.
func toSchemaRole(role entity.Role) schema.RoleType {
	switch role {
	case entity.RoleUser:
		return schema.User
	case entity.RoleAssistant:
		return schema.Assistant
	case entity.RoleSystem:
		return schema.System
	case entity.RoleTool:
		return schema.Tool
	default:
		return schema.User
	}
}

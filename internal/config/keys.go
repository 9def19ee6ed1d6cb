package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "llm.api_key", typ: kString, env: "CHECKAUD_API_KEY", secret: true,
		apply:   func(cfg *Config, v any) { cfg.LLM.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.APIKey },
	},
	{
		key: "llm.base_url", typ: kString, env: "CHECKAUD_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.LLM.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.BaseURL },
	},
	{
		key: "llm.model", typ: kString, env: "CHECKAUD_MODEL",
		apply:   func(cfg *Config, v any) { cfg.LLM.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.Model },
	},
	{
		key: "llm.temperature", typ: kFloat, env: "CHECKAUD_TEMPERATURE",
		apply:   func(cfg *Config, v any) { cfg.LLM.Temperature = v.(float64) },
		extract: func(cfg Config) any { return cfg.LLM.Temperature },
	},
	{
		key: "llm.max_tries", typ: kInt, env: "CHECKAUD_MAX_TRIES",
		apply:   func(cfg *Config, v any) { cfg.LLM.MaxTries = v.(int) },
		extract: func(cfg Config) any { return cfg.LLM.MaxTries },
	},
	{
		key: "server.port", typ: kInt, env: "CHECKAUD_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.mcp_port", typ: kInt, env: "CHECKAUD_SERVER_MCP_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.MCPPort = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.MCPPort },
	},
	{
		key: "server.token", typ: kString, env: "CHECKAUD_SERVER_TOKEN", secret: true,
		apply:   func(cfg *Config, v any) { cfg.Server.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Token },
	},
	{
		key: "storage.data_dir", typ: kString, env: "CHECKAUD_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "storage.transcript_dir", typ: kString, env: "CHECKAUD_TRANSCRIPT_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.TranscriptDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.TranscriptDir },
	},
	{
		key: "storage.dataset_dir", typ: kString, env: "CHECKAUD_DATASET_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DatasetDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DatasetDir },
	},
	{
		key: "storage.report_dir", typ: kString, env: "CHECKAUD_REPORT_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.ReportDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.ReportDir },
	},
	{
		key: "pipeline.add_context", typ: kBool, env: "CHECKAUD_ADD_WP_CONTEXT",
		apply:   func(cfg *Config, v any) { cfg.Pipeline.AddContext = v.(bool) },
		extract: func(cfg Config) any { return cfg.Pipeline.AddContext },
	},
	{
		key: "pipeline.extract_iso_knowledge", typ: kBool, env: "CHECKAUD_EXTRACT_ISO_KNOWLEDGE",
		apply:   func(cfg *Config, v any) { cfg.Pipeline.ExtractISOKnowledge = v.(bool) },
		extract: func(cfg Config) any { return cfg.Pipeline.ExtractISOKnowledge },
	},
	{
		key: "pipeline.group_topics", typ: kBool, env: "CHECKAUD_GROUP_TOPICS",
		apply:   func(cfg *Config, v any) { cfg.Pipeline.GroupTopics = v.(bool) },
		extract: func(cfg Config) any { return cfg.Pipeline.GroupTopics },
	},
	{
		key: "pipeline.filter_requirements", typ: kBool, env: "CHECKAUD_FILTER_REQUIREMENTS",
		apply:   func(cfg *Config, v any) { cfg.Pipeline.FilterRequirements = v.(bool) },
		extract: func(cfg Config) any { return cfg.Pipeline.FilterRequirements },
	},
	{
		key: "pipeline.new_checklists", typ: kBool, env: "CHECKAUD_NEW_CHECKLISTS",
		apply:   func(cfg *Config, v any) { cfg.Pipeline.NewChecklists = v.(bool) },
		extract: func(cfg Config) any { return cfg.Pipeline.NewChecklists },
	},
	{
		key: "pipeline.new_context", typ: kBool, env: "CHECKAUD_NEW_CONTEXT",
		apply:   func(cfg *Config, v any) { cfg.Pipeline.NewContext = v.(bool) },
		extract: func(cfg Config) any { return cfg.Pipeline.NewContext },
	},
	{
		key: "evaluation.question_level", typ: kBool, env: "CHECKAUD_EVALUATE_QUESTION_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Evaluation.QuestionLevel = v.(bool) },
		extract: func(cfg Config) any { return cfg.Evaluation.QuestionLevel },
	},
	{
		key: "evaluation.checklist_level", typ: kBool, env: "CHECKAUD_EVALUATE_CHECKLIST_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Evaluation.ChecklistLevel = v.(bool) },
		extract: func(cfg Config) any { return cfg.Evaluation.ChecklistLevel },
	},
	{
		key: "evaluation.requirement_level", typ: kBool, env: "CHECKAUD_EVALUATE_REQUIREMENT_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Evaluation.RequirementLevel = v.(bool) },
		extract: func(cfg Config) any { return cfg.Evaluation.RequirementLevel },
	},
	{
		key: "log.level", typ: kString, env: "CHECKAUD_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyEnv(cfg *Config) error {
	for _, spec := range specs {
		raw, ok := os.LookupEnv(spec.env)
		if !ok || raw == "" {
			continue
		}
		v, err := parseValue(spec.typ, raw)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", spec.env, err)
		}
		spec.apply(cfg, v)
	}
	return nil
}

func parseValue(typ keyType, raw string) (any, error) {
	switch typ {
	case kInt:
		return strconv.Atoi(raw)
	case kBool:
		return strconv.ParseBool(raw)
	case kFloat:
		return strconv.ParseFloat(raw, 64)
	default:
		return raw, nil
	}
}

// Describe returns key/value pairs for display, masking secrets.
func Describe(cfg Config) [][2]string {
	out := make([][2]string, 0, len(specs))
	for _, spec := range specs {
		val := fmt.Sprintf("%v", spec.extract(cfg))
		if spec.secret && val != "" {
			val = "(set)"
		}
		out = append(out, [2]string{spec.key, val})
	}
	return out
}

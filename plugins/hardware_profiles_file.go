package plugins

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"gopkg.in/yaml.v3"
)

// OrderedMap is a JSON object that keeps the key order of its YAML source
type OrderedMap struct {
	Keys   []string
	Values map[string]interface{}
}

// MarshalJSON implements json.Marshaler for OrderedMap
func (om *OrderedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, key := range om.Keys {
		if i > 0 {
			buf.WriteString(",")
		}
		keyBytes, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteString(":")
		valBytes, err := json.Marshal(om.Values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(valBytes)
	}
	buf.WriteString("}")
	return buf.Bytes(), nil
}

// orderedValue converts a yaml.Node to values that marshal to JSON in
// document order. Register values stay strings so hex is never reinterpreted.
func orderedValue(node *yaml.Node) interface{} {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) > 0 {
			return orderedValue(node.Content[0])
		}
		return nil

	case yaml.MappingNode:
		om := &OrderedMap{
			Keys:   make([]string, 0, len(node.Content)/2),
			Values: make(map[string]interface{}),
		}
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			om.Keys = append(om.Keys, key)
			om.Values[key] = orderedValue(node.Content[i+1])
		}
		return om

	case yaml.SequenceNode:
		result := make([]interface{}, len(node.Content))
		for i, item := range node.Content {
			result[i] = orderedValue(item)
		}
		return result

	case yaml.AliasNode:
		if node.Alias != nil {
			return orderedValue(node.Alias)
		}
		return nil

	case yaml.ScalarNode:
		switch node.Tag {
		case "!!null":
			return nil
		case "!!bool":
			return node.Value == "true"
		}
		return node.Value
	}

	return node.Value
}

// mergeProfilesNode replaces the profiles sequence of doc with profiles,
// leaving other keys and their comments in place
func mergeProfilesNode(doc *yaml.Node, profiles []Profile) error {
	var fresh yaml.Node
	if err := fresh.Encode(profileFile{Profiles: profiles}); err != nil {
		return err
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		*doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{&fresh}}
		return nil
	}

	root := doc.Content[0]
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == "profiles" {
			root.Content[i+1] = fresh.Content[1]
			return nil
		}
	}
	root.Content = append(root.Content, fresh.Content[0], fresh.Content[1])
	return nil
}

// handleLoadProfilesFile handles GET /api/dw1000/profiles/file
func (p *HardwarePlugin) handleLoadProfilesFile(c *fiber.Ctx) error {
	if p.config.ProfilesFile == "" {
		return SendErrorMessage(c, 404, "No profiles file configured")
	}

	data, err := os.ReadFile(p.config.ProfilesFile)
	if err != nil {
		return SendError(c, 500, fmt.Errorf("failed to read profiles file: %w", err))
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return SendError(c, 500, fmt.Errorf("failed to parse profiles file: %w", err))
	}

	return SendSuccess(c, orderedValue(&root), "Profiles loaded successfully")
}

// handleSaveProfilesFile handles PUT /api/dw1000/profiles/file. The new
// profiles are validated against the register map before the file is
// replaced, then become the active set.
func (p *HardwarePlugin) handleSaveProfilesFile(c *fiber.Ctx) error {
	if p.config.ProfilesFile == "" {
		return SendErrorMessage(c, 404, "No profiles file configured")
	}

	var req profileFile
	if err := c.BodyParser(&req); err != nil {
		return SendErrorMessage(c, 400, "Invalid request body")
	}

	original, err := os.ReadFile(p.config.ProfilesFile)
	if err != nil && !os.IsNotExist(err) {
		return SendError(c, 500, fmt.Errorf("failed to read profiles file: %w", err))
	}

	var root yaml.Node
	if err := yaml.Unmarshal(original, &root); err != nil {
		return SendError(c, 500, fmt.Errorf("failed to parse profiles file: %w", err))
	}

	if err := mergeProfilesNode(&root, req.Profiles); err != nil {
		return SendError(c, 500, fmt.Errorf("failed to build profiles: %w", err))
	}

	data, err := yaml.Marshal(&root)
	if err != nil {
		return SendError(c, 500, fmt.Errorf("failed to serialize profiles: %w", err))
	}

	profiles, err := ParseProfiles(data)
	if err != nil {
		return SendError(c, 400, err)
	}

	if err := writeFileAtomic(p.config.ProfilesFile, data); err != nil {
		return SendError(c, 500, fmt.Errorf("failed to write profiles file: %w", err))
	}

	p.SetProfiles(profiles)
	slog.Info("Profiles saved", "path", p.config.ProfilesFile, "count", len(profiles))

	return SendSuccess(c, map[string]interface{}{
		"count": len(profiles),
	}, "Profiles saved successfully")
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".profiles-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

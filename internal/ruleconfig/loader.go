package ruleconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dkwon/vigil/backend/internal/contracts"
)

// Load reads a YAML template document and returns it with the raw bytes
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Document, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, &contracts.ConfigError{Path: path, Detail: err.Error()}
	}

	doc, err := Parse(data)
	if err != nil {
		if ce, ok := err.(*contracts.ConfigError); ok {
			ce.Path = path
		}
		return nil, data, err
	}

	return doc, data, nil
}

// Parse decodes and validates a template document from raw YAML
func Parse(data []byte) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(&doc); err != nil {
		return nil, &contracts.ConfigError{Detail: err.Error()}
	}

	if err := Validate(&doc); err != nil {
		return nil, err
	}

	return &doc, nil
}

// Hash generates SHA256 hash from Document (canonical JSON)
// 주의: map 대신 struct 사용으로 해시 재현성 보장
func Hash(doc *Document) (string, error) {
	// Struct → JSON (결정적 순서)
	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// NewDecisionSnapshot creates an audit snapshot of the loaded document
func NewDecisionSnapshot(doc *Document, yamlData []byte) (*DecisionSnapshot, error) {
	hash, err := Hash(doc)
	if err != nil {
		return nil, err
	}

	return &DecisionSnapshot{
		ConfigID:   doc.Meta.ConfigID,
		ConfigHash: hash,
		ConfigYAML: string(yamlData),
		CreatedAt:  time.Now(),
	}, nil
}

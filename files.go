/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/friendsofgo/errors"
	"gopkg.in/yaml.v3"
)

type answersFile struct {
	Answers []string `yaml:"answers"`
}

// loadAnswers reads an answer pool from path. Files ending in .yaml, .yml
// or .json hold either a bare list or an "answers" key; anything else is
// read as one answer per line, skipping blank lines and # comments.
func loadAnswers(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read answers")
	}

	var pool []string

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		pool, err = parseAnswersYAML(data)
	default:
		pool, err = parseAnswersText(data)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "parse answers %s", path)
	}

	if len(pool) == 0 {
		return nil, errors.Wrapf(ErrEmptyPool, "load answers %s", path)
	}

	return pool, nil
}

func parseAnswersYAML(data []byte) ([]string, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	if len(doc.Content) == 0 {
		return nil, nil
	}

	var raw []string

	switch root := doc.Content[0]; root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&raw); err != nil {
			return nil, err
		}
	case yaml.MappingNode:
		var file answersFile
		if err := root.Decode(&file); err != nil {
			return nil, err
		}
		raw = file.Answers
	default:
		return nil, errors.New("expected a list of answers or an answers key")
	}

	pool := make([]string, 0, len(raw))
	for _, answer := range raw {
		if answer = strings.TrimSpace(answer); answer != "" {
			pool = append(pool, answer)
		}
	}

	return pool, nil
}

func parseAnswersText(data []byte) ([]string, error) {
	var pool []string

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		pool = append(pool, line)
	}

	return pool, scanner.Err()
}

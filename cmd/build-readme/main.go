package main

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	_ "vault-scribe/internal/command"

	"vault-scribe/internal/config"
	"vault-scribe/internal/core"
)

type cmdInfo struct {
	Name        string
	Description string
	Category    string
}

func main() {
	sections := make(map[string][]cmdInfo)
	var order []string
	for _, cmd := range core.AllCommands() {
		info := cmdInfo{
			Name:        "/" + cmd.Name(),
			Description: cmd.Description(),
			Category:    cmd.Category(),
		}
		if _, ok := sections[info.Category]; !ok {
			order = append(order, info.Category)
		}
		sections[info.Category] = append(sections[info.Category], info)
	}
	config.SortCategories(order)

	var buf bytes.Buffer
	for _, cat := range order {
		fmt.Fprintf(&buf, "### %s\n\n", cat)
		for _, c := range sections[cat] {
			fmt.Fprintf(&buf, "* **`%s`**\n  %s\n\n", c.Name, c.Description)
		}
	}

	tmplData, err := os.ReadFile("README.md.tmpl")
	if err != nil {
		panic(err)
	}
	tmpl, err := template.New("readme").Parse(string(tmplData))
	if err != nil {
		panic(err)
	}

	data := map[string]any{
		"CommandSections": buf.String(),
	}
	var out bytes.Buffer
	if err := tmpl.Execute(&out, data); err != nil {
		panic(err)
	}
	if err := os.WriteFile("README.md", out.Bytes(), 0644); err != nil {
		panic(err)
	}
}

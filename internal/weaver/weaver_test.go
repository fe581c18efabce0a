package weaver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_Python(t *testing.T) {
	w := New()
	content := `import os
from collections import OrderedDict
import numpy.linalg
    from app.models import User
x = 1  # import nothing here
`

	deps := w.Extract(content, LangPython)

	assert.Equal(t, []string{"os", "collections", "linalg", "models"}, deps)
}

func TestExtract_JavaScript(t *testing.T) {
	w := New()
	content := `import React from 'react'
import { useState } from "react"
const utils = require('./utils/helper')
import styles from '../shared/styles'
let x = 5
`

	deps := w.Extract(content, LangJavaScript)

	assert.Equal(t, []string{"react", "helper", "styles"}, deps)
}

func TestExtract_TypeScriptSharesJSRule(t *testing.T) {
	w := New()
	content := `import { Engine } from './engine'`

	assert.Equal(t, []string{"engine"}, w.Extract(content, LangTypeScript))
	assert.Equal(t, []string{"engine"}, w.Extract(content, LangTSX))
}

func TestExtract_Deduplicates(t *testing.T) {
	w := New()
	content := `import os
import os
from os import path
`

	deps := w.Extract(content, LangPython)

	// "from os import path" captures "os" again; order is preserved.
	assert.Equal(t, []string{"os"}, deps)
}

func TestExtract_UnknownLanguage(t *testing.T) {
	w := New()
	assert.Empty(t, w.Extract("import foo", "cobol"))
	assert.Empty(t, w.Extract("import foo", ""))
}

func TestLanguageForPath(t *testing.T) {
	cases := map[string]string{
		"backend/app.py":   LangPython,
		"web/index.js":     LangJavaScript,
		"web/App.tsx":      LangTSX,
		"web/util.ts":      LangTypeScript,
		"web/legacy.jsx":   LangJavaScript,
		"README.md":        "",
		"noextension":      "",
		"archive/data.csv": "",
	}
	for path, want := range cases {
		assert.Equal(t, want, LanguageForPath(path), path)
	}
}

package model

// DefaultName is the model used when a document does not name one.
const DefaultName = "content"

const systemDefault = `
title: string
description: string
created: datetime
updated: datetime
tags: mark[]
categories: mark[]
summary: text
__body__: markdown
`

// SystemDefault returns a fresh, unbound copy of the built-in content model.
// User models are laid over it with New.
func SystemDefault() *Model {
	m, err := Parse(DefaultName, systemDefault)
	if err != nil {
		panic(err)
	}
	return m
}

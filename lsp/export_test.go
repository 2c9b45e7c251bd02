package lsp

var OffsetToPosition = offsetToPosition

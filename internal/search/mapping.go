package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for book documents.
// Title and author get stemmed full-text search; tags and language use
// exact keyword matching so filters stay precise.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	titleField := bleve.NewTextFieldMapping()
	titleField.Analyzer = en.AnalyzerName
	titleField.Store = true
	docMapping.AddFieldMappingsAt("title", titleField)

	authorField := bleve.NewTextFieldMapping()
	authorField.Analyzer = en.AnalyzerName
	authorField.Store = true
	docMapping.AddFieldMappingsAt("author", authorField)

	// Searchable but not stored, descriptions can be long.
	descField := bleve.NewTextFieldMapping()
	descField.Analyzer = en.AnalyzerName
	descField.Store = false
	docMapping.AddFieldMappingsAt("description", descField)

	tagsField := bleve.NewTextFieldMapping()
	tagsField.Analyzer = keyword.Name
	tagsField.Store = true
	docMapping.AddFieldMappingsAt("tags", tagsField)

	languageField := bleve.NewTextFieldMapping()
	languageField.Analyzer = keyword.Name
	languageField.Store = true
	docMapping.AddFieldMappingsAt("language", languageField)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}

package core

import (
	"proteincore/pkg/domain"
	"proteincore/pkg/validation"
)

type (
	EntityType         = domain.EntityType
	EntryType          = domain.EntryType
	Base               = domain.Base
	StructuralEntry    = domain.StructuralEntry
	ProteinRecord      = domain.ProteinRecord
	ProteinIsoform     = domain.ProteinIsoform
	Change             = domain.Change
	Action             = domain.Action
	Rule               = domain.Rule
	DatasetView        = domain.DatasetView
	RulesEngine        = domain.RulesEngine
	RuleViolationError = domain.RuleViolationError
	Result             = validation.Result
)

const (
	EntityStructuralEntry = domain.EntityStructuralEntry
	EntityProteinRecord   = domain.EntityProteinRecord
	EntityProteinIsoform  = domain.EntityProteinIsoform
)

const (
	EntryTypeFamily      = domain.EntryTypeFamily
	EntryTypeDomainClass = domain.EntryTypeDomainClass
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)

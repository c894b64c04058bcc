package scorer

// DefaultSkillTables builds C11's built-in bilingual skill-synonym lattice,
// high-value skill tiers, and industry-category relations, ported from the
// original's create_default_skill_weights, skill_synonyms, high_value_skills,
// and industry_relations (multi_dimensional_scorer.py / generic_resume_models.py).
// Every lookup key is lowercase: skillsMatch/industryMatch lowercase both job
// and résumé strings before consulting these tables.
func DefaultSkillTables() SkillTables {
	return SkillTables{
		Weights:            defaultSkillWeights(),
		Synonyms:           defaultSkillSynonyms(),
		HighValueTiers:     defaultHighValueTiers(),
		IndustryWeights:    defaultIndustryWeights(),
		IndustryCategories: defaultIndustryCategories(),
	}
}

// defaultSkillWeights is a trimmed port of create_default_skill_weights's
// default_skills dict: the subset covering the original's core domain
// (cloud/data-engineering/AI specialties weighted highest) plus the
// Chinese-language keyword equivalents a bilingual résumé may use instead
// of the English term.
func defaultSkillWeights() map[string]float64 {
	return map[string]float64{
		"python": 1.8, "java": 1.5, "javascript": 1.4, "typescript": 1.4,
		"c#": 1.6, "go": 1.5, "golang": 1.5,

		"azure": 1.9, "microsoft azure": 1.9, "azure data factory": 2.0,
		"azure functions": 1.8, "azure databricks": 2.0, "azure synapse": 1.8,
		"aws": 1.5, "gcp": 1.4, "google cloud": 1.4,

		"databricks": 2.0, "delta lake": 1.9, "spark": 1.8, "pyspark": 1.9,
		"hadoop": 1.5, "kafka": 1.6, "etl": 1.8, "data pipeline": 1.9,
		"data warehouse": 1.8, "data governance": 1.9, "data quality": 1.8,

		"machine learning": 1.9, "deep learning": 1.8, "ai": 1.9,
		"artificial intelligence": 1.9, "tensorflow": 1.7, "pytorch": 1.8,
		"langchain": 1.8, "rag": 1.9, "retrieval augmented generation": 1.9,
		"prompt engineering": 1.7,

		"docker": 1.5, "kubernetes": 1.6, "ci/cd": 1.6, "devops": 1.6,
		"agile": 1.7, "scrum": 1.8, "scrum master": 1.9, "project management": 1.8,

		"pharmaceutical": 1.7, "clinical data": 1.6, "regulatory compliance": 1.6,

		"数据工程": 1.9, "数据架构": 2.0, "数据治理": 1.9, "机器学习": 1.9,
		"深度学习": 1.8, "人工智能": 1.9, "数据科学": 1.8, "大数据": 1.7,
		"敏捷开发": 1.7, "项目管理": 1.8,
	}
}

// defaultSkillSynonyms is the literal skill_synonyms dict, lowercased and
// stripped of case-only/self-referential duplicates (e.g. 'python':
// ['Python', 'python'] collapses to nothing since the canonical key already
// covers it).
func defaultSkillSynonyms() map[string][]string {
	return map[string][]string{
		"machine learning":        {"机器学习", "ml"},
		"artificial intelligence": {"人工智能", "ai"},
		"deep learning":           {"深度学习", "dl"},
		"azure":                   {"microsoft azure"},
		"aws":                     {"amazon web services"},
		"tensorflow":              {"tf"},
		"pytorch":                 {"torch"},
		"rag":                     {"retrieval augmented generation"},
		"sql":                     {"mysql", "postgresql", "sql server"},
		"docker":                  {"容器化"},
		"kubernetes":              {"k8s"},
		"scrum":                   {"敏捷开发", "agile"},
		"etl":                     {"extract transform load"},
		"data warehouse":          {"数据仓库"},
		"big data":                {"大数据"},
		"spark":                   {"apache spark"},
		"hadoop":                  {"apache hadoop"},
	}
}

// defaultHighValueTiers assigns the three bonus tiers D2 consults to the
// original's high_value_skills list (['rag', 'langchain', 'ai/ml', 'azure',
// 'databricks']), substituting the non-literal 'ai/ml' compound key with
// its two constituent skill names.
func defaultHighValueTiers() map[string]int {
	return map[string]int{
		"azure":            3,
		"databricks":       3,
		"rag":              3,
		"langchain":        2,
		"ai":               1,
		"machine learning": 1,
	}
}

// defaultIndustryWeights gives the industries named in the original's
// industry-relations table a direct weight, used when a résumé's work
// history industry and the job's industry overlap (one contains the other,
// case-insensitive).
func defaultIndustryWeights() map[string]float64 {
	return map[string]float64{
		"pharmaceutical": 0.9, "制药": 0.9,
		"healthcare": 0.85, "医疗": 0.85,
		"technology": 0.85, "科技": 0.85,
		"finance": 0.8, "金融": 0.8,
		"consulting": 0.75, "咨询": 0.75,
	}
}

// defaultIndustryCategories ports _calculate_industry_similarity's
// industry_relations dict, extended with each category's English
// equivalents so a job posted in English (e.g. "Healthcare") still
// resolves against a résumé's Chinese work-history industry (制药).
func defaultIndustryCategories() map[string][]string {
	return map[string][]string{
		"technology": {"科技", "互联网", "软件", "技术", "technology", "tech", "software", "internet"},
		"healthcare": {"制药", "医疗", "生物", "健康", "pharmaceutical", "pharma", "healthcare", "biotech", "medical"},
		"finance":    {"金融", "银行", "保险", "投资", "finance", "banking", "insurance", "investment"},
		"consulting": {"咨询", "管理", "战略", "顾问", "consulting", "management", "strategy", "advisory"},
	}
}

package syncentity

// Catalog lists the storage models exposed for synchronization and the
// per-model write policy for transactional data.
type Catalog struct {
	ReferenceData     []string
	TransactionalData []string
	// Aliases are extra accepted entity keys, keyed by exact model name.
	Aliases map[string][]string
	// OfficeWritable and TerminalWritable name the transactional models those
	// roles may push. Matching is case-insensitive.
	OfficeWritable   []string
	TerminalWritable []string
}

// DefaultCatalog is the GoldPDV central store catalog.
func DefaultCatalog() Catalog {
	return Catalog{
		ReferenceData:     append([]string(nil), referenceDataTargets...),
		TransactionalData: append([]string(nil), transactionalDataTargets...),
		Aliases: map[string][]string{
			"t_itens":  {"items"},
			"t_vendas": {"sales"},
			"t_pedcmp": {"purchases"},
			"t_pagb":   {"payables"},
			"t_rec":    {"receivables"},
		},
		OfficeWritable: []string{
			"t_pedcmp",
			"t_pagb",
			"t_pag",
			"t_pagbfunc",
			"t_pagbfuncb",
		},
		TerminalWritable: []string{
			"t_vendas",
			"t_itsven",
			"t_nfs",
			"t_itnfs",
			"t_comanda",
			"t_comandait",
		},
	}
}

var referenceDataTargets = []string{
	"t_itens",
	"t_gritens",
	"t_subgr",
	"t_formulas",
	"t_emp",
	"t_for",
	"t_cli",
	"t_users",
	"t_motoristas",
	"t_vende",
	"t_cst",
	"t_cfop",
	"t_bco",
	"t_tpgto",
	"t_fpgto",
	"t_fpgto2",
	"t_placon",
	"t_equip",
	"t_equipcli",
	"t_equipamento",
	"t_especialidade",
	"t_frota",
	"t_funcionario",
	"t_imovel",
	"t_clasfis",
	"t_config",
	"t_custocid",
}

var transactionalDataTargets = []string{
	"t_vendas",
	"t_itsven",
	"t_comanda",
	"t_comandait",
	"t_cclasstrib",
	"t_caracteristica",
	"t_acessequip",
	"t_automovel",
	"t_acessorio",
	"t_cargo",
	"t_locacao",
	"t_locacaochk",
	"t_lancapicms",
	"t_lancappiscofins",
	"t_cxabe",
	"t_pgcaixa",
	"t_cxdoc",
	"t_pag",
	"t_pagb",
	"t_rec",
	"t_recb",
	"t_fluxocx",
	"t_debcrecli",
	"t_movest",
	"t_nfs",
	"t_itnfs",
	"t_pdc",
	"t_itpdc",
	"t_pedcmp",
	"t_itpedcmp",
	"t_comven",
	"t_lotes",
	"t_lote",
	"t_loteenv",
	"t_lvsai",
	"t_lvsaiitem",
	"t_lvent",
	"t_lventitem",
	"t_lventref",
	"t_formacao",
	"t_orc",
	"t_itorc",
	"t_marca",
	"t_marcaautomovel",
	"t_midia",
	"t_motcham",
	"t_obs",
	"t_obsagup",
	"t_os",
	"t_ositens",
	"t_zona",
	"t_visitas",
	"t_visitascli",
	"t_veiculos",
	"t_usere",
	"t_usersn",
	"t_undmed",
	"t_cid",
	"t_uf",
	"t_bai",
	"t_baixaloc",
	"t_transf",
	"t_ittransf",
	"t_tipoequipamento",
	"t_tecnico",
	"t_serv",
	"t_socio",
	"t_solicitacao",
	"t_rotatec",
	"t_rotatecit",
	"t_saldoit",
	"t_romfre",
	"t_romret",
	"t_req",
	"t_itsreq",
	"t_reqven",
	"t_retbco",
	"t_rettit",
	"t_reg_producao",
	"t_recrepa",
	"t_recprorrog",
	"t_reclot",
	"t_recibo",
	"t_reclacli",
	"t_receitas",
	"t_proc",
	"t_procreclacli",
	"t_printers",
	"t_pedimport",
	"t_pedidos_fab",
	"t_pagbfunc",
	"t_pagbfuncb",
	"t_outroslan",
	"t_outroslanfiscais",
	"t_mputilizada",
	"t_modelo",
	"t_modeloautomovel",
}

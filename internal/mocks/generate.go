package mocks

//go:generate mockery --name RuleStore --srcpkg github.com/cadenza-lab/project-cadenza/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
//go:generate mockery --name LedgerStore --srcpkg github.com/cadenza-lab/project-cadenza/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter

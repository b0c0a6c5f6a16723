// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package data

// XBRL concept names referenced by the metrics calculations
const (
	ConceptRevenues                = "Revenues"
	ConceptRevenueFromContracts    = "RevenueFromContractWithCustomerExcludingAssessedTax"
	ConceptSalesRevenueNet         = "SalesRevenueNet"
	ConceptGrossProfit             = "GrossProfit"
	ConceptOperatingIncome         = "OperatingIncomeLoss"
	ConceptNetIncome               = "NetIncomeLoss"
	ConceptEBITDA                  = "EBITDA"
	ConceptDepreciationDepletion   = "DepreciationDepletionAndAmortization"
	ConceptDepreciation            = "DepreciationAndAmortization"
	ConceptAssets                  = "Assets"
	ConceptCashAndEquivalents      = "CashAndCashEquivalentsAtCarryingValue"
	ConceptCash                    = "Cash"
	ConceptShortTermBorrowings     = "ShortTermBorrowings"
	ConceptLongTermDebt            = "LongTermDebt"
	ConceptLongTermDebtNoncurrent  = "LongTermDebtNoncurrent"
	ConceptStockholdersEquity      = "StockholdersEquity"
	ConceptStockholdersEquityNCI   = "StockholdersEquityIncludingPortionAttributableToNoncontrollingInterest"
	ConceptSharesOutstanding       = "CommonStockSharesOutstanding"
	ConceptEntitySharesOutstanding = "EntityCommonStockSharesOutstanding"
)

var incomeStatementConcepts = []string{
	ConceptRevenues, ConceptRevenueFromContracts,
	ConceptSalesRevenueNet, "SalesRevenueGoodsNet", "SalesRevenueServicesNet",
	"CostOfGoodsAndServicesSold", "CostOfRevenue", "CostOfGoodsSold",
	ConceptGrossProfit,
	"OperatingExpenses", "SellingGeneralAndAdministrativeExpense",
	"ResearchAndDevelopmentExpense", "GeneralAndAdministrativeExpense",
	ConceptOperatingIncome, ConceptEBITDA,
	"InterestExpense", "InterestIncome", "InterestIncomeExpenseNet",
	"OtherNonoperatingIncomeExpense",
	"IncomeLossFromContinuingOperationsBeforeIncomeTaxes",
	"IncomeTaxExpenseBenefit",
	ConceptNetIncome, "NetIncomeLossAvailableToCommonStockholdersBasic",
	"EarningsPerShareBasic", "EarningsPerShareDiluted",
	"WeightedAverageNumberOfSharesOutstandingBasic",
	"WeightedAverageNumberOfSharesOutstandingDiluted",
}

var balanceSheetConcepts = []string{
	ConceptAssets, "AssetsCurrent", "AssetsNoncurrent",
	ConceptCashAndEquivalents, ConceptCash,
	"ShortTermInvestments", "MarketableSecuritiesCurrent",
	"AccountsReceivableNetCurrent", "AccountsReceivableNet",
	"InventoryNet", "InventoryFinishedGoods", "InventoryRawMaterials",
	"PrepaidExpenseAndOtherAssetsCurrent",
	"PropertyPlantAndEquipmentNet", "PropertyPlantAndEquipmentGross",
	"AccumulatedDepreciationDepletionAndAmortizationPropertyPlantAndEquipment",
	"Goodwill", "IntangibleAssetsNetExcludingGoodwill", "OtherAssetsNoncurrent",
	"Liabilities", "LiabilitiesCurrent", "LiabilitiesNoncurrent",
	"AccountsPayableCurrent", "AccountsPayable",
	"AccruedLiabilitiesCurrent", "EmployeeRelatedLiabilitiesCurrent",
	ConceptShortTermBorrowings, "LongTermDebtCurrent",
	ConceptLongTermDebt, ConceptLongTermDebtNoncurrent,
	"DeferredRevenueCurrent", "DeferredRevenueNoncurrent",
	"OtherLiabilitiesNoncurrent",
	ConceptStockholdersEquity, ConceptStockholdersEquityNCI,
	ConceptSharesOutstanding, "CommonStockSharesIssued", "CommonStockSharesAuthorized",
	"CommonStockValue", "AdditionalPaidInCapital",
	"RetainedEarningsAccumulatedDeficit", "TreasuryStockValue",
	"AccumulatedOtherComprehensiveIncomeLossNetOfTax",
}

var cashFlowConcepts = []string{
	"NetCashProvidedByUsedInOperatingActivities",
	"NetCashProvidedByUsedInInvestingActivities",
	"NetCashProvidedByUsedInFinancingActivities",
	ConceptDepreciationDepletion, ConceptDepreciation,
	"ShareBasedCompensation", "StockIssuedDuringPeriodValueShareBasedCompensation",
	"DeferredIncomeTaxExpenseBenefit",
	"PaymentsToAcquirePropertyPlantAndEquipment", "CapitalExpendituresIncurredButNotYetPaid",
	"PaymentsToAcquireBusinessesNetOfCashAcquired",
	"ProceedsFromIssuanceOfLongTermDebt", "RepaymentsOfLongTermDebt",
	"PaymentsOfDividends", "PaymentsOfDividendsCommonStock",
	"PaymentsForRepurchaseOfCommonStock",
	"ProceedsFromIssuanceOfCommonStock",
	"EffectOfExchangeRateOnCashAndCashEquivalents",
}

// Concept fallback chains; the first concept with a value wins
var (
	RevenueConcepts      = []string{ConceptRevenues, ConceptRevenueFromContracts, ConceptSalesRevenueNet}
	CashConcepts         = []string{ConceptCashAndEquivalents, ConceptCash}
	LongTermDebtConcepts = []string{ConceptLongTermDebt, ConceptLongTermDebtNoncurrent}
	DepreciationConcepts = []string{ConceptDepreciationDepletion, ConceptDepreciation}
	SharesConcepts       = []string{ConceptSharesOutstanding, ConceptEntitySharesOutstanding}
	EquityConcepts       = []string{ConceptStockholdersEquity, ConceptStockholdersEquityNCI}
)

// ConceptSet is an allowlist of concept names
type ConceptSet map[string]struct{}

// NewConceptSet builds a set from the given concept names
func NewConceptSet(concepts ...string) ConceptSet {
	set := make(ConceptSet, len(concepts))
	for _, concept := range concepts {
		set[concept] = struct{}{}
	}
	return set
}

// Contains returns true if concept is in the set
func (set ConceptSet) Contains(concept string) bool {
	_, ok := set[concept]
	return ok
}

// DefaultConcepts returns the allowlist of concepts ingested when none is configured
func DefaultConcepts() ConceptSet {
	all := make([]string, 0, len(incomeStatementConcepts)+len(balanceSheetConcepts)+len(cashFlowConcepts)+1)
	all = append(all, incomeStatementConcepts...)
	all = append(all, balanceSheetConcepts...)
	all = append(all, cashFlowConcepts...)
	all = append(all, ConceptEntitySharesOutstanding)

	return NewConceptSet(all...)
}

// MetricConcepts lists every concept read by the valuation calculations
func MetricConcepts() []string {
	concepts := []string{
		ConceptGrossProfit, ConceptOperatingIncome, ConceptNetIncome, ConceptEBITDA,
		ConceptAssets, ConceptShortTermBorrowings,
	}

	concepts = append(concepts, RevenueConcepts...)
	concepts = append(concepts, CashConcepts...)
	concepts = append(concepts, LongTermDebtConcepts...)
	concepts = append(concepts, DepreciationConcepts...)
	concepts = append(concepts, SharesConcepts...)
	concepts = append(concepts, EquityConcepts...)

	return concepts
}

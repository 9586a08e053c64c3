// costscan lists the billable resources of an AWS account across every
// enabled region and writes them to the console, CSV and XLSX.
package main

func main() {
	Execute()
}
